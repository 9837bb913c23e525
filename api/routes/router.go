package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/wecr8/damp-backend/api/controllers"
	webhookcontrollers "github.com/wecr8/damp-backend/api/controllers/webhooks"
	"github.com/wecr8/damp-backend/api/middleware"
	"github.com/wecr8/damp-backend/internal/auth"
	"github.com/wecr8/damp-backend/internal/campaign"
	"github.com/wecr8/damp-backend/internal/cart"
	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/internal/checkout"
	"github.com/wecr8/damp-backend/internal/orders"
	"github.com/wecr8/damp-backend/internal/votes"
	"github.com/wecr8/damp-backend/internal/waitlist"
	stripewebhook "github.com/wecr8/damp-backend/internal/webhooks/stripe"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
	"github.com/wecr8/damp-backend/pkg/redis"
	"github.com/wecr8/damp-backend/pkg/stripe"
)

// Dependencies is everything the HTTP surface needs. Nil services make their
// routes answer 503 NOT_CONFIGURED instead of failing at startup.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Redis       *redis.Client
	Readiness   []controllers.ReadinessCheck
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Catalog  *catalog.Catalog
	Carts    cart.Service
	Checkout checkout.Service
	Votes    votes.Service
	Auth     auth.Service
	Waitlist waitlist.Service
	Campaign campaign.Service
	Orders   orders.Service

	Stripe               *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *redis.Guard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.Checkout.SiteURL, !cfg.App.IsProd()),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		verifier         middleware.TokenVerifier
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}
	if deps.Auth != nil {
		verifier = deps.Auth
	}

	idempotent := func(p middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotency(idempotencyStore, p, logg)
	}
	authLimit := rateLimit(middleware.NewRateLimitPolicy("auth", cfg.RateLimit.Window, cfg.RateLimit.AuthIPLimit, cfg.RateLimit.AuthEmailLimit), deps.Redis, logg)
	voteLimit := rateLimit(middleware.NewRateLimitPolicy("votes", cfg.RateLimit.Window, cfg.RateLimit.VoteIPLimit, 0), deps.Redis, logg)
	waitlistLimit := rateLimit(middleware.NewRateLimitPolicy("waitlist", cfg.RateLimit.Window, cfg.RateLimit.WaitlistIP, cfg.RateLimit.WaitlistEmail), deps.Redis, logg)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", stripeWebhook(deps, logg))

		r.Get("/products", controllers.ProductsList(deps.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.Catalog, logg))

		r.Post("/cart", controllers.CartCreate(deps.Carts, logg))
		r.Get("/cart/{cartId}", controllers.CartGet(deps.Carts, logg))
		r.Post("/cart/{cartId}/items", controllers.CartAddItem(deps.Carts, logg))
		r.Put("/cart/{cartId}/items/{productId}", controllers.CartSetQuantity(deps.Carts, logg))
		r.Delete("/cart/{cartId}/items/{productId}", controllers.CartRemoveItem(deps.Carts, logg))
		r.With(idempotent(middleware.IdempotencyPayment)).Post("/cart/{cartId}/checkout", controllers.CartCheckout(deps.Checkout, logg))

		r.With(idempotent(middleware.IdempotencyPayment)).Post("/checkout/sessions", controllers.CheckoutCreateSession(deps.Checkout, logg))
		r.Get("/checkout/sessions/{sessionId}", controllers.CheckoutGetSession(deps.Checkout, logg))
		r.Get("/stats/sales", controllers.SalesStats(deps.Checkout, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(verifier, logg))
			r.With(voteLimit).Post("/votes", controllers.VoteSubmit(deps.Votes, logg))
			r.Get("/votes/results", controllers.VoteResults(deps.Votes, logg))
			r.Get("/votes/status", controllers.VoteStatus(deps.Votes, logg))
			r.Post("/votes/fingerprint", controllers.VoteFingerprint(logg))
		})

		r.With(authLimit, idempotent(middleware.IdempotencyOptional)).Post("/auth/signup", controllers.AuthSignUp(deps.Auth, logg))
		r.With(authLimit).Post("/auth/signin", controllers.AuthSignIn(deps.Auth, logg))
		r.Post("/auth/signout", controllers.AuthSignOut())
		r.With(authLimit).Post("/auth/password-reset", controllers.AuthPasswordReset(deps.Auth, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verifier, logg))
			r.Get("/auth/me", controllers.AuthMe(deps.Auth, &cfg.Admin, logg))
			r.Patch("/auth/me", controllers.AuthUpdateMe(deps.Auth, logg))
		})

		r.With(waitlistLimit, idempotent(middleware.IdempotencyOptional)).Post("/waitlist", controllers.WaitlistJoin(deps.Waitlist, logg))
		r.Get("/waitlist/count", controllers.WaitlistCount(deps.Waitlist, logg))

		r.Get("/campaign/status", controllers.CampaignStatus(deps.Campaign, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verifier, logg))
			r.Use(middleware.RequireAdmin(&cfg.Admin, logg))

			r.Get("/admin/orders", controllers.AdminOrdersList(deps.Orders, logg))
			r.Get("/admin/orders/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
			r.With(idempotent(middleware.IdempotencyRequired)).Post("/admin/orders/{orderId}/capture", controllers.AdminOrderCapture(deps.Orders, logg))
			r.With(idempotent(middleware.IdempotencyRequired)).Post("/admin/orders/{orderId}/cancel", controllers.AdminOrderCancel(deps.Orders, logg))
			r.With(idempotent(middleware.IdempotencyRequired)).Post("/admin/campaign/adjust", controllers.AdminCampaignAdjust(deps.Campaign, logg))
		})
	})

	return r
}

// rateLimit skips throttling when Redis is not wired.
func rateLimit(policy middleware.RateLimitPolicy, client *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(policy, client, logg)
}

func stripeWebhook(deps Dependencies, logg *logger.Logger) http.HandlerFunc {
	var (
		svc      webhookcontrollers.StripeWebhookService
		verifier interface {
			ConstructEvent([]byte, string) (stripego.Event, error)
		}
		guard interface {
			CheckAndMark(context.Context, string) (bool, error)
			Release(context.Context, string) error
		}
	)
	if deps.StripeWebhookService != nil {
		svc = deps.StripeWebhookService
	}
	if deps.Stripe != nil && deps.Stripe.SigningSecret() != "" {
		verifier = deps.Stripe
	}
	if deps.StripeWebhookGuard != nil {
		guard = deps.StripeWebhookGuard
	}
	return webhookcontrollers.StripeWebhook(svc, verifier, guard, logg)
}
