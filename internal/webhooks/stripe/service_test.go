package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/internal/orders"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/enums"
	"github.com/wecr8/damp-backend/pkg/mailer"
)

func TestHandleEvent_SessionCompletedRecordsOrder(t *testing.T) {
	deps := newDeps()
	svc := deps.service(t)

	if err := svc.HandleEvent(context.Background(), sessionEvent(t, preOrderSession())); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(deps.orders.recorded) != 1 {
		t.Fatalf("expected 1 recorded order, got %d", len(deps.orders.recorded))
	}
	in := deps.orders.recorded[0]
	if in.CheckoutSessionID != "cs_test_1" || in.PaymentIntentID != "pi_test_1" {
		t.Fatalf("unexpected ids: %+v", in)
	}
	if in.CustomerEmail != "buyer@example.com" || in.CustomerName != "Buyer" {
		t.Fatalf("expected customer details to win, got %q %q", in.CustomerEmail, in.CustomerName)
	}
	if in.DepositAmount != 5497 {
		t.Fatalf("expected deposit 5497, got %d", in.DepositAmount)
	}
	if len(in.Items) != 2 || in.Items[0].Amount != 9998 || in.Items[1].Amount != 3499 {
		t.Fatalf("unexpected items %+v", in.Items)
	}
	if len(deps.carts.deleted) != 1 || deps.carts.deleted[0] != "cart-1" {
		t.Fatalf("expected cart-1 deleted, got %v", deps.carts.deleted)
	}
	if deps.campaign.units != 3 {
		t.Fatalf("expected 3 units recorded, got %d", deps.campaign.units)
	}
	if len(deps.mail.sent) != 1 {
		t.Fatalf("expected confirmation email")
	}
	msg := deps.mail.sent[0]
	if msg.To != "buyer@example.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	for _, want := range []string{"$134.97", "$54.97", "$80.00"} {
		if !strings.Contains(msg.PlainText, want) {
			t.Fatalf("expected %s in email body:\n%s", want, msg.PlainText)
		}
	}
}

func TestHandleEvent_DuplicateSessionSkipsSideEffects(t *testing.T) {
	deps := newDeps()
	deps.orders.duplicate = true
	svc := deps.service(t)

	if err := svc.HandleEvent(context.Background(), sessionEvent(t, preOrderSession())); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(deps.carts.deleted) != 0 || deps.campaign.units != 0 || len(deps.mail.sent) != 0 {
		t.Fatalf("expected no side effects for an existing order")
	}
}

func TestHandleEvent_IgnoresNonPreOrderSessions(t *testing.T) {
	deps := newDeps()
	svc := deps.service(t)

	sess := preOrderSession()
	sess.Metadata["order_type"] = "subscription"
	if err := svc.HandleEvent(context.Background(), sessionEvent(t, sess)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(deps.orders.recorded) != 0 {
		t.Fatalf("expected session to be ignored")
	}
}

func TestHandleEvent_SideEffectFailuresDoNotFail(t *testing.T) {
	deps := newDeps()
	deps.carts.err = errors.New("redis down")
	deps.campaign.err = errors.New("redis down")
	deps.mail.err = errors.New("sendgrid 500")
	svc := deps.service(t)

	if err := svc.HandleEvent(context.Background(), sessionEvent(t, preOrderSession())); err != nil {
		t.Fatalf("expected best-effort side effects, got %v", err)
	}
	if len(deps.orders.recorded) != 1 {
		t.Fatalf("expected order recorded")
	}
}

func TestHandleEvent_RecordFailureReturnsError(t *testing.T) {
	deps := newDeps()
	deps.orders.err = errors.New("db down")
	svc := deps.service(t)

	if err := svc.HandleEvent(context.Background(), sessionEvent(t, preOrderSession())); err == nil {
		t.Fatalf("expected record failure to surface")
	}
}

func TestHandleEvent_PaymentIntentTransitions(t *testing.T) {
	deps := newDeps()
	svc := deps.service(t)

	raw, _ := json.Marshal(&stripe.PaymentIntent{ID: "pi_test_1"})
	for _, typ := range []stripe.EventType{stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed} {
		event := &stripe.Event{ID: "evt_" + string(typ), Type: typ, Data: &stripe.EventData{Raw: raw}}
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("handle %s: %v", typ, err)
		}
	}
	if len(deps.orders.authorized) != 1 || deps.orders.authorized[0] != "pi_test_1" {
		t.Fatalf("expected authorize call, got %v", deps.orders.authorized)
	}
	if len(deps.orders.failed) != 1 {
		t.Fatalf("expected fail call, got %v", deps.orders.failed)
	}
}

func TestHandleEvent_IntentBeforeSessionCompleted(t *testing.T) {
	intentEvent := func(t *testing.T, typ stripe.EventType, metadata map[string]string) *stripe.Event {
		t.Helper()
		raw, err := json.Marshal(&stripe.PaymentIntent{ID: "pi_early", Metadata: metadata})
		if err != nil {
			t.Fatalf("marshal intent: %v", err)
		}
		return &stripe.Event{ID: "evt_early", Type: typ, Data: &stripe.EventData{Raw: raw}}
	}
	preOrder := map[string]string{"order_type": "pre_order"}

	tests := []struct {
		name      string
		typ       stripe.EventType
		metadata  map[string]string
		wantRetry bool
	}{
		{name: "capturable pre-order retries", typ: stripe.EventTypePaymentIntentAmountCapturableUpdated, metadata: preOrder, wantRetry: true},
		{name: "succeeded pre-order retries", typ: stripe.EventTypePaymentIntentSucceeded, metadata: preOrder, wantRetry: true},
		{name: "foreign intent is acknowledged", typ: stripe.EventTypePaymentIntentSucceeded},
		{name: "failure without order is acknowledged", typ: stripe.EventTypePaymentIntentPaymentFailed, metadata: preOrder},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := newDeps()
			deps.orders.intentErr = orders.ErrIntentUnknown
			svc := deps.service(t)

			err := svc.HandleEvent(context.Background(), intentEvent(t, tc.typ, tc.metadata))
			if tc.wantRetry {
				if !errors.Is(err, orders.ErrIntentUnknown) {
					t.Fatalf("expected retryable error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected event acknowledged, got %v", err)
			}
		})
	}
}

func TestHandleEvent_SessionWithCapturableIntentRecordsAuthorized(t *testing.T) {
	deps := newDeps()
	svc := deps.service(t)

	sess := preOrderSession()
	sess.PaymentIntent = &stripe.PaymentIntent{ID: "pi_test_1", Status: stripe.PaymentIntentStatusRequiresCapture}
	if err := svc.HandleEvent(context.Background(), sessionEvent(t, sess)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(deps.orders.recorded) != 1 || !deps.orders.recorded[0].Authorized {
		t.Fatalf("expected authorized order input, got %+v", deps.orders.recorded)
	}

	deps = newDeps()
	svc = deps.service(t)
	if err := svc.HandleEvent(context.Background(), sessionEvent(t, preOrderSession())); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if deps.orders.recorded[0].Authorized {
		t.Fatal("unexpanded intent should record deposit_paid")
	}
}

func TestHandleEvent_IgnoresUnknownTypes(t *testing.T) {
	deps := newDeps()
	svc := deps.service(t)

	event := &stripe.Event{Type: stripe.EventTypeCustomerCreated, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected unknown event ignored, got %v", err)
	}
}

type deps struct {
	orders   *stubOrders
	carts    *stubCarts
	campaign *stubCampaign
	mail     *stubMailer
}

func newDeps() *deps {
	return &deps{
		orders:   &stubOrders{},
		carts:    &stubCarts{},
		campaign: &stubCampaign{},
		mail:     &stubMailer{},
	}
}

func (d *deps) service(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Orders:   d.orders,
		Carts:    d.carts,
		Campaign: d.campaign,
		Catalog:  catalog.Default(),
		Mailer:   d.mail,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func preOrderSession() *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            "cs_test_1",
		AmountTotal:   13497,
		Currency:      stripe.CurrencyUSD,
		CustomerEmail: "fallback@example.com",
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: "buyer@example.com",
			Name:  "Buyer",
		},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_1"},
		Metadata: map[string]string{
			"order_type":     "pre_order",
			"cart_id":        "cart-1",
			"items":          "damp-handle:2,cup-sleeve:1",
			"deposit_amount": "5497",
			"quantity":       "3",
		},
	}
}

func sessionEvent(t *testing.T, sess *stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_session",
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

type stubOrders struct {
	recorded   []orders.RecordInput
	authorized []string
	failed     []string
	duplicate  bool
	err        error
	intentErr  error
}

func (s *stubOrders) Record(_ context.Context, in orders.RecordInput) (*models.Order, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	s.recorded = append(s.recorded, in)
	pi := in.PaymentIntentID
	order := &models.Order{
		ID:                uuid.New(),
		CheckoutSessionID: in.CheckoutSessionID,
		PaymentIntentID:   &pi,
		CustomerEmail:     in.CustomerEmail,
		CustomerName:      in.CustomerName,
		Status:            enums.OrderStatusDepositPaid,
		AmountTotal:       in.AmountTotal,
		DepositAmount:     in.DepositAmount,
		Currency:          in.Currency,
		Items:             in.Items,
	}
	return order, !s.duplicate, nil
}

func (s *stubOrders) MarkAuthorized(_ context.Context, id string) (bool, error) {
	s.authorized = append(s.authorized, id)
	if s.intentErr != nil {
		return false, s.intentErr
	}
	return true, nil
}

func (s *stubOrders) MarkFailed(_ context.Context, id string) (bool, error) {
	s.failed = append(s.failed, id)
	if s.intentErr != nil {
		return false, s.intentErr
	}
	return false, nil
}

type stubCarts struct {
	deleted []string
	err     error
}

func (s *stubCarts) Delete(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubCampaign struct {
	units int64
	err   error
}

func (s *stubCampaign) Record(_ context.Context, qty int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.units += qty
	return nil, nil
}

type stubMailer struct {
	sent []mailer.Message
	err  error
}

func (s *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}
