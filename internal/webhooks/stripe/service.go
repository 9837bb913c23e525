package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/internal/events"
	"github.com/wecr8/damp-backend/internal/orders"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/mailer"
	"github.com/wecr8/damp-backend/pkg/metrics"
)

const preOrderType = "pre_order"

type orderRecorder interface {
	Record(ctx context.Context, in orders.RecordInput) (*models.Order, bool, error)
	MarkAuthorized(ctx context.Context, paymentIntentID string) (bool, error)
	MarkFailed(ctx context.Context, paymentIntentID string) (bool, error)
}

type cartDeleter interface {
	Delete(ctx context.Context, cartID string) error
}

type campaignRecorder interface {
	Record(ctx context.Context, qty int64) ([]int64, error)
}

type ServiceParams struct {
	Orders   orderRecorder
	Carts    cartDeleter
	Campaign campaignRecorder
	Catalog  *catalog.Catalog
	Events   *events.Emitter
	Mailer   mailer.Sender
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
}

// Service applies verified Stripe events to orders. Only the order write is
// required; cart cleanup, counters, events and email are best effort.
type Service struct {
	orders   orderRecorder
	carts    cartDeleter
	campaign campaignRecorder
	catalog  *catalog.Catalog
	events   *events.Emitter
	mailer   mailer.Sender
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	return &Service{
		orders:   params.Orders,
		carts:    params.Carts,
		campaign: params.Campaign,
		catalog:  params.Catalog,
		events:   params.Events,
		mailer:   params.Mailer,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var err error
	outcome := "processed"
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		err = s.sessionCompleted(ctx, &sess)
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentAmountCapturableUpdated:
		err = s.intentUpdate(ctx, event, s.orders.MarkAuthorized, true)
	case stripe.EventTypePaymentIntentPaymentFailed:
		err = s.intentUpdate(ctx, event, s.orders.MarkFailed, false)
	default:
		outcome = "ignored"
	}
	if err != nil {
		outcome = "error"
	}
	s.metrics.Webhook(string(event.Type), outcome)
	return err
}

func (s *Service) sessionCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess.Metadata["order_type"] != preOrderType {
		return nil
	}

	in := orders.RecordInput{
		CheckoutSessionID: sess.ID,
		CustomerEmail:     sess.CustomerEmail,
		AmountTotal:       sess.AmountTotal,
		Currency:          string(sess.Currency),
		Items:             s.itemsFromMetadata(sess.Metadata["items"]),
		CartID:            sess.Metadata["cart_id"],
	}
	if sess.CustomerDetails != nil {
		if sess.CustomerDetails.Email != "" {
			in.CustomerEmail = sess.CustomerDetails.Email
		}
		in.CustomerName = sess.CustomerDetails.Name
	}
	if sess.PaymentIntent != nil {
		in.PaymentIntentID = sess.PaymentIntent.ID
		in.Authorized = sess.PaymentIntent.Status == stripe.PaymentIntentStatusRequiresCapture
	}
	if deposit, err := strconv.ParseInt(sess.Metadata["deposit_amount"], 10, 64); err == nil {
		in.DepositAmount = deposit
	}

	order, created, err := s.orders.Record(ctx, in)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	ctx = s.withOrder(ctx, order)
	units := order.Units()
	if units == 0 {
		if qty, err := strconv.ParseInt(sess.Metadata["quantity"], 10, 64); err == nil {
			units = qty
		}
	}

	if in.CartID != "" && s.carts != nil {
		if err := s.carts.Delete(ctx, in.CartID); err != nil {
			s.warn(ctx, "webhook.cart_cleanup_failed", err)
		}
	}
	if s.campaign != nil && units > 0 {
		if _, err := s.campaign.Record(ctx, units); err != nil {
			s.warn(ctx, "webhook.campaign_record_failed", err)
		}
	}

	s.events.Emit(ctx, enums.EventOrderDepositPaid, "order", order.ID.String(), events.OrderDepositPaid{
		OrderID:           order.ID.String(),
		CheckoutSessionID: order.CheckoutSessionID,
		AmountTotal:       order.AmountTotal,
		DepositAmount:     order.DepositAmount,
		Currency:          order.Currency,
		Units:             int(units),
	})

	if s.mailer != nil && order.CustomerEmail != "" {
		if err := s.mailer.Send(ctx, confirmationEmail(order, units)); err != nil {
			s.warn(ctx, "webhook.confirmation_email_failed", err)
		}
	}
	return nil
}

// intentUpdate applies an intent event to its order. With awaitOrder set, a
// pre-order intent whose order is not recorded yet fails the delivery so the
// claim is released and Stripe retries after checkout.session.completed.
func (s *Service) intentUpdate(ctx context.Context, event *stripe.Event, apply func(context.Context, string) (bool, error), awaitOrder bool) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	updated, err := apply(ctx, intent.ID)
	switch {
	case errors.Is(err, orders.ErrIntentUnknown):
		if awaitOrder && intent.Metadata["order_type"] == preOrderType {
			return err
		}
	case err != nil:
		return err
	}
	if !updated && s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": intent.ID,
			"event_type":        string(event.Type),
		}), "webhook.payment_intent_no_matching_order")
	}
	return nil
}

// itemsFromMetadata parses "productId:qty,..." written at session creation.
func (s *Service) itemsFromMetadata(raw string) []models.OrderItem {
	var items []models.OrderItem
	for _, spec := range strings.Split(raw, ",") {
		id, qtyRaw, ok := strings.Cut(strings.TrimSpace(spec), ":")
		if !ok || id == "" {
			continue
		}
		qty, err := strconv.ParseInt(qtyRaw, 10, 64)
		if err != nil || qty < 1 {
			continue
		}
		item := models.OrderItem{ProductID: id, Quantity: qty}
		if s.catalog != nil {
			if p, err := s.catalog.Get(id); err == nil {
				item.Amount = p.Price * qty
			}
		}
		items = append(items, item)
	}
	return items
}

func (s *Service) withOrder(ctx context.Context, order *models.Order) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"order_id":            order.ID.String(),
		"checkout_session_id": order.CheckoutSessionID,
	})
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", fmt.Sprint(err)), msg)
}
