package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/db"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/pagination"
	pkgstripe "github.com/wecr8/damp-backend/pkg/stripe"
)

const defaultCancelReason = "requested_by_customer"

var (
	ErrOrderNotFound     = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	ErrNotCapturable     = pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be captured in its current status")
	ErrNotCancellable    = pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled in its current status")
	ErrMissingIntent     = pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment intent")
	ErrPaymentsDisabled  = pkgerrors.New(pkgerrors.CodeNotConfigured, "payments are not configured")
	ErrPaymentUpdate     = pkgerrors.New(pkgerrors.CodeDependency, "payment provider rejected the update")
	ErrSessionIDRequired = pkgerrors.New(pkgerrors.CodeValidation, "checkout session id is required")
	ErrInvalidCursor     = pkgerrors.New(pkgerrors.CodeValidation, "invalid order list cursor")
	// ErrIntentUnknown is retryable: Stripe may deliver payment_intent events
	// before the checkout.session.completed that records the order.
	ErrIntentUnknown = pkgerrors.New(pkgerrors.CodeDependency, "no order recorded for payment intent")
)

var (
	capturableStatuses   = []enums.OrderStatus{enums.OrderStatusDepositPaid, enums.OrderStatusPaymentAuthorized}
	cancellableStatuses  = capturableStatuses
	authorizableStatuses = []enums.OrderStatus{enums.OrderStatusDepositPaid}
	failableStatuses     = []enums.OrderStatus{enums.OrderStatusDepositPaid, enums.OrderStatusPaymentAuthorized}
)

// Service manages pre-orders recorded from Stripe checkouts.
type Service interface {
	// Record stores the order for a completed session; repeated calls return the
	// existing order with created=false.
	Record(ctx context.Context, in RecordInput) (order *models.Order, created bool, err error)
	MarkAuthorized(ctx context.Context, paymentIntentID string) (bool, error)
	MarkFailed(ctx context.Context, paymentIntentID string) (bool, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderView, error)
	Capture(ctx context.Context, id uuid.UUID) (*OrderView, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*OrderView, error)
}

type ServiceParams struct {
	Repo Repository
	// Intents may be nil when Stripe is not configured; capture and cancel then fail.
	Intents pkgstripe.PaymentIntents
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	intents pkgstripe.PaymentIntents
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository required")
	}
	return &service{repo: params.Repo, intents: params.Intents, logg: params.Logger}, nil
}

func (s *service) Record(ctx context.Context, in RecordInput) (*models.Order, bool, error) {
	sessionID := strings.TrimSpace(in.CheckoutSessionID)
	if sessionID == "" {
		return nil, false, ErrSessionIDRequired
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}

	status := enums.OrderStatusDepositPaid
	if in.Authorized {
		status = enums.OrderStatusPaymentAuthorized
	}

	order := &models.Order{
		ID:                uuid.New(),
		CheckoutSessionID: sessionID,
		CustomerEmail:     strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
		CustomerName:      strings.TrimSpace(in.CustomerName),
		Status:            status,
		AmountTotal:       in.AmountTotal,
		DepositAmount:     in.DepositAmount,
		Currency:          currency,
		Items:             in.Items,
	}
	if in.PaymentIntentID != "" {
		pi := in.PaymentIntentID
		order.PaymentIntentID = &pi
	}
	if in.CartID != "" {
		cartID := in.CartID
		order.CartID = &cartID
	}

	created, stored, err := s.repo.CreateIfAbsent(ctx, order)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record order")
	}
	return stored, created, nil
}

func (s *service) MarkAuthorized(ctx context.Context, paymentIntentID string) (bool, error) {
	return s.moveByIntent(ctx, paymentIntentID, authorizableStatuses, enums.OrderStatusPaymentAuthorized)
}

func (s *service) MarkFailed(ctx context.Context, paymentIntentID string) (bool, error) {
	return s.moveByIntent(ctx, paymentIntentID, failableStatuses, enums.OrderStatusPaymentFailed)
}

// moveByIntent returns ErrIntentUnknown when no order carries the intent, and
// false without error when the order exists but is past the from statuses.
func (s *service) moveByIntent(ctx context.Context, paymentIntentID string, from []enums.OrderStatus, next enums.OrderStatus) (bool, error) {
	n, err := s.repo.UpdateStatusByPaymentIntent(ctx, paymentIntentID, from, next)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order "+string(next))
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.repo.FindByPaymentIntent(ctx, paymentIntentID); err != nil {
		if db.IsNotFound(err) {
			return false, ErrIntentUnknown.WithDetails(map[string]any{"paymentIntentId": paymentIntentID})
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by payment intent")
	}
	return false, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	rows, next, err := s.repo.List(ctx, params, filters)
	switch {
	case errors.Is(err, ErrInvalidCursor):
		return nil, err
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &OrderList{Orders: make([]OrderView, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, NewOrderView(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(*order)
	return &view, nil
}

func (s *service) Capture(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanCapture() {
		return nil, ErrNotCapturable.WithDetails(map[string]any{"status": order.Status})
	}
	intentID, err := s.intentFor(order)
	if err != nil {
		return nil, err
	}

	if _, err := s.intents.Capture(ctx, intentID); err != nil {
		s.logFailure(ctx, order, "orders.capture_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrPaymentUpdate.Message())
	}
	return s.transition(ctx, order, capturableStatuses, enums.OrderStatusPaymentCaptured)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*OrderView, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, ErrNotCancellable.WithDetails(map[string]any{"status": order.Status})
	}
	intentID, err := s.intentFor(order)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	if _, err := s.intents.Cancel(ctx, intentID, reason); err != nil {
		s.logFailure(ctx, order, "orders.cancel_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrPaymentUpdate.Message())
	}
	return s.transition(ctx, order, cancellableStatuses, enums.OrderStatusCancelled)
}

func (s *service) transition(ctx context.Context, order *models.Order, from []enums.OrderStatus, next enums.OrderStatus) (*OrderView, error) {
	ok, err := s.repo.UpdateStatus(ctx, order.ID, from, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	view := NewOrderView(*order)
	return &view, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) intentFor(order *models.Order) (string, error) {
	if s.intents == nil {
		return "", ErrPaymentsDisabled
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return "", ErrMissingIntent
	}
	return *order.PaymentIntentID, nil
}

func (s *service) logFailure(ctx context.Context, order *models.Order, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":          order.ID.String(),
		"payment_intent_id": *order.PaymentIntentID,
	})
	s.logg.Error(ctx, msg, err)
}
