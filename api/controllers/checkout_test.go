package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/wecr8/damp-backend/internal/checkout"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
)

type stubCheckoutService struct {
	gotReq  checkout.SessionRequest
	session *checkout.Session
	details *checkout.SessionDetails
	stats   *checkout.SalesStats
	err     error
}

func (s *stubCheckoutService) CreateSession(_ context.Context, req checkout.SessionRequest) (*checkout.Session, error) {
	s.gotReq = req
	return s.session, s.err
}

func (s *stubCheckoutService) CreateSessionForCart(_ context.Context, cartID string, req checkout.SessionRequest) (*checkout.Session, error) {
	req.CartID = cartID
	s.gotReq = req
	return s.session, s.err
}

func (s *stubCheckoutService) RetrieveSession(context.Context, string) (*checkout.SessionDetails, error) {
	return s.details, s.err
}

func (s *stubCheckoutService) SalesStats(context.Context) (*checkout.SalesStats, error) {
	return s.stats, s.err
}

func TestCheckoutCreateSession(t *testing.T) {
	stub := &stubCheckoutService{session: &checkout.Session{SessionID: "cs_test_9", URL: "https://checkout.stripe.com/pay/cs_test_9"}}
	rec := serve(t, http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions",
		`{"items":[{"productId":"damp-handle","quantity":2}],"customerEmail":" fan@example.com "}`,
		CheckoutCreateSession(stub, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(stub.gotReq.Items) != 1 || stub.gotReq.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", stub.gotReq.Items)
	}
	got := decodeData[checkout.Session](t, rec)
	if got.SessionID != "cs_test_9" || got.URL == "" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestCheckoutCreateSessionValidation(t *testing.T) {
	cases := map[string]string{
		"no items":      `{"items":[]}`,
		"zero quantity": `{"items":[{"productId":"damp-handle","quantity":0}]}`,
		"bad email":     `{"items":[{"productId":"damp-handle","quantity":1}],"customerEmail":"nope"}`,
		"unknown field": `{"items":[{"productId":"damp-handle","quantity":1}],"coupon":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubCheckoutService{}
			rec := serve(t, http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions", body, CheckoutCreateSession(stub, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
		})
	}
}

func TestCheckoutCreateSessionUpstreamFailure(t *testing.T) {
	stub := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeDependency, "checkout session could not be created")}
	rec := serve(t, http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions",
		`{"items":[{"productId":"damp-handle","quantity":1}]}`, CheckoutCreateSession(stub, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected error code %s", env.Error.Code)
	}
}

func TestCheckoutGetSessionAndStats(t *testing.T) {
	stub := &stubCheckoutService{
		details: &checkout.SessionDetails{ID: "cs_test_1", PaymentStatus: "unpaid", AmountTotal: 4999},
		stats:   &checkout.SalesStats{TotalUnits: 3, SessionsCount: 2},
	}
	rec := serve(t, http.MethodGet, "/api/v1/checkout/sessions/{sessionId}", "/api/v1/checkout/sessions/cs_test_1", "", CheckoutGetSession(stub, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := decodeData[checkout.SessionDetails](t, rec); got.AmountTotal != 4999 {
		t.Fatalf("unexpected details %+v", got)
	}

	rec = serve(t, http.MethodGet, "/api/v1/stats/sales", "/api/v1/stats/sales", "", SalesStats(stub, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := decodeData[checkout.SalesStats](t, rec); got.TotalUnits != 3 {
		t.Fatalf("unexpected stats %+v", got)
	}
}
