// Package webhooks hosts inbound provider callbacks.
package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/wecr8/damp-backend/api/responses"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

// Stripe caps event payloads well below this.
const maxStripePayload = 64 << 10

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// eventClaims marks event ids as seen. Release undoes a claim so Stripe's
// retry of a failed delivery is processed again.
type eventClaims interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type receipt struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

type stripeHandler struct {
	svc      StripeWebhookService
	verifier eventVerifier
	claims   eventClaims
	logg     *logger.Logger
}

// StripeWebhook answers 2xx only once an event is handled or known to be a
// replay; any error response makes Stripe redeliver.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, claims eventClaims, logg *logger.Logger) http.HandlerFunc {
	h := &stripeHandler{svc: svc, verifier: verifier, claims: claims, logg: logg}
	return h.serve
}

func (h *stripeHandler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.svc == nil || h.verifier == nil || h.claims == nil {
		responses.WriteError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "stripe webhooks are not configured"))
		return
	}

	event, err := h.verify(w, r)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	ctx = h.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
		"stripe_livemode":   event.Livemode,
	})

	duplicate, err := h.process(ctx, &event)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, receipt{Received: true, Duplicate: duplicate})
}

func (h *stripeHandler) verify(w http.ResponseWriter, r *http.Request) (stripe.Event, error) {
	signature := r.Header.Get(stripeSignatureHeader)
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "missing Stripe-Signature header")
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStripePayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large")
		}
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook payload")
	}

	event, err := h.verifier.ConstructEvent(payload, signature)
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stripe signature verification failed")
	}
	return event, nil
}

func (h *stripeHandler) process(ctx context.Context, event *stripe.Event) (bool, error) {
	seen, err := h.claims.CheckAndMark(ctx, event.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event")
	}
	if seen {
		h.logg.Info(ctx, "stripe event replay skipped")
		return true, nil
	}

	if err := h.svc.HandleEvent(ctx, event); err != nil {
		if rerr := h.claims.Release(ctx, event.ID); rerr != nil {
			h.logg.Error(ctx, "stripe event claim not released", rerr)
		}
		return false, err
	}
	h.logg.Info(ctx, "stripe event handled")
	return false, nil
}
