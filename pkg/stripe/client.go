package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
)

// keyPrefixes lists the secret-key prefixes each environment accepts.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

// Client holds per-key Stripe resource clients. The package-global stripe.Key
// is never touched, so several clients can coexist in one process.
type Client struct {
	env           string
	signingSecret string
	sessions      session.Client
	intents       paymentintent.Client
}

type Option func(*stripe.BackendConfig)

// WithBaseURL points API calls at another host, such as stripe-mock.
func WithBaseURL(url string) Option {
	return func(c *stripe.BackendConfig) { c.URL = stripe.String(url) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *stripe.BackendConfig) { c.HTTPClient = hc }
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe: unknown environment %q (want test or live)", cfg.Env)
	}
	key := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case key == "":
		return nil, errors.New("stripe: api key is required")
	case secret == "":
		return nil, errors.New("stripe: webhook signing secret is required")
	case !hasAnyPrefix(key, prefixes):
		return nil, fmt.Errorf("stripe: %s environment needs a key starting with %s", env, strings.Join(prefixes, " or "))
	}

	backendCfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(2)}
	for _, opt := range opts {
		opt(backendCfg)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client ready")
	return &Client{
		env:           env,
		signingSecret: secret,
		sessions:      session.Client{B: backend, Key: key},
		intents:       paymentintent.Client{B: backend, Key: key},
	}, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Environment is "test" or "live"; empty on a nil client.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// ConstructEvent checks the Stripe-Signature header against the signing
// secret before decoding the payload.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.SigningSecret())
}
