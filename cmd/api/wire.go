package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/wecr8/damp-backend/api/controllers"
	"github.com/wecr8/damp-backend/api/routes"
	"github.com/wecr8/damp-backend/internal/auth"
	"github.com/wecr8/damp-backend/internal/campaign"
	"github.com/wecr8/damp-backend/internal/cart"
	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/internal/checkout"
	"github.com/wecr8/damp-backend/internal/events"
	"github.com/wecr8/damp-backend/internal/orders"
	"github.com/wecr8/damp-backend/internal/votes"
	"github.com/wecr8/damp-backend/internal/waitlist"
	stripewebhook "github.com/wecr8/damp-backend/internal/webhooks/stripe"
	"github.com/wecr8/damp-backend/pkg/amqp"
	pkgauth "github.com/wecr8/damp-backend/pkg/auth"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/db"
	"github.com/wecr8/damp-backend/pkg/gcp"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/mailer"
	"github.com/wecr8/damp-backend/pkg/metrics"
	"github.com/wecr8/damp-backend/pkg/migrate"
	"github.com/wecr8/damp-backend/pkg/mongo"
	"github.com/wecr8/damp-backend/pkg/pubsub"
	"github.com/wecr8/damp-backend/pkg/redis"
	"github.com/wecr8/damp-backend/pkg/storage/gcs"
	"github.com/wecr8/damp-backend/pkg/stripe"
)

// app owns every client opened at startup so they close in reverse order.
type app struct {
	deps    routes.Dependencies
	closers []io.Closer
}

func (a *app) track(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *app) ready(name string, p controllers.Pinger) {
	a.deps.Readiness = append(a.deps.Readiness, controllers.ReadinessCheck{Name: name, Pinger: p})
}

func (a *app) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	return err
}

func build(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*app, error) {
	a := &app{}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)

	a.deps.Config = cfg
	a.deps.Logger = logg
	a.deps.Gatherer = registry
	a.deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return a, fmt.Errorf("bootstrap database: %w", err)
	}
	a.track(dbClient)
	a.ready("database", dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return a, fmt.Errorf("run dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return a, fmt.Errorf("bootstrap redis: %w", err)
	}
	a.track(redisClient)
	a.ready("redis", redisClient)
	a.deps.Redis = redisClient

	emitter, err := buildEmitter(ctx, a, cfg, logg, domainMetrics)
	if err != nil {
		return a, err
	}

	cat := catalog.Default()
	a.deps.Catalog = cat

	carts, err := cart.NewService(cart.ServiceParams{
		Store:   cart.NewRedisStore(redisClient, cfg.Checkout.CartTTL),
		Catalog: cat,
	})
	if err != nil {
		return a, fmt.Errorf("cart service: %w", err)
	}
	a.deps.Carts = carts

	voteSvc, err := buildVotes(ctx, a, cfg, logg, dbClient, emitter, domainMetrics)
	if err != nil {
		return a, err
	}
	a.deps.Votes = voteSvc

	waitlistSvc, err := buildWaitlist(ctx, a, cfg, logg, dbClient, emitter, domainMetrics)
	if err != nil {
		return a, err
	}
	a.deps.Waitlist = waitlistSvc

	campaignSvc, err := campaign.NewService(campaign.ServiceParams{
		Store:  redisClient,
		Config: cfg.Campaign,
		Logger: logg,
	})
	if err != nil {
		return a, fmt.Errorf("campaign service: %w", err)
	}
	a.deps.Campaign = campaignSvc

	var stripeClient *stripe.Client
	if cfg.Stripe.Configured() {
		stripeClient, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return a, fmt.Errorf("bootstrap stripe: %w", err)
		}
		a.deps.Stripe = stripeClient
	} else {
		logg.Warn(ctx, "stripe not configured; checkout and webhooks disabled")
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Intents: stripe.NewPaymentIntents(stripeClient),
		Logger:  logg,
	})
	if err != nil {
		return a, fmt.Errorf("orders service: %w", err)
	}
	a.deps.Orders = orderSvc

	if stripeClient != nil {
		checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
			Sessions:    stripe.NewCheckoutSessions(stripeClient),
			Carts:       carts,
			Catalog:     cat,
			Config:      cfg.Checkout,
			Environment: stripeClient.Environment(),
			Events:      emitter,
			Metrics:     domainMetrics,
			Logger:      logg,
		})
		if err != nil {
			return a, fmt.Errorf("checkout service: %w", err)
		}
		a.deps.Checkout = checkoutSvc

		webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
			Orders:   orderSvc,
			Carts:    carts,
			Campaign: campaignSvc,
			Catalog:  cat,
			Events:   emitter,
			Mailer:   buildMailer(ctx, cfg, logg),
			Metrics:  domainMetrics,
			Logger:   logg,
		})
		if err != nil {
			return a, fmt.Errorf("stripe webhook service: %w", err)
		}
		a.deps.StripeWebhookService = webhookSvc

		guard, err := redis.NewGuard(redisClient, cfg.Eventing.IdempotencyTTL, "stripe")
		if err != nil {
			return a, fmt.Errorf("stripe webhook guard: %w", err)
		}
		a.deps.StripeWebhookGuard = guard
	}

	authSvc, err := buildAuth(ctx, cfg, logg)
	if err != nil {
		return a, err
	}
	a.deps.Auth = authSvc

	return a, nil
}

func buildEmitter(ctx context.Context, a *app, cfg *config.Config, logg *logger.Logger, m *metrics.DomainMetrics) (*events.Emitter, error) {
	var publisher events.Publisher
	switch cfg.Eventing.Transport {
	case config.TransportPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		a.track(client)
		a.ready("pubsub", client)
		publisher = events.NewPubSubPublisher(client.EventsPublisher())
	case config.TransportAMQP:
		client, err := amqp.NewClient(ctx, cfg.AMQP, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap amqp: %w", err)
		}
		a.track(client)
		a.ready("amqp", client)
		publisher = events.NewAMQPPublisher(client)
	}
	return events.NewEmitter(publisher, cfg.Eventing.Transport, logg, m), nil
}

func buildVotes(ctx context.Context, a *app, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, emitter *events.Emitter, m *metrics.DomainMetrics) (votes.Service, error) {
	params := votes.ServiceParams{Events: emitter, Metrics: m, Logger: logg}

	switch cfg.Votes.Backend {
	case config.BackendMongo:
		client, err := mongo.NewClient(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap mongo: %w", err)
		}
		a.track(client)
		a.ready("mongo", client)
		store := votes.NewMongoStore(client.Collection(votes.CollectionName))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo vote indexes: %w", err)
		}
		params.Store = store
	default:
		params.Store = votes.NewSQLStore(dbClient.DB())
	}
	if cfg.Votes.LocalFallback {
		params.Fallback = votes.NewMemoryStore()
	}

	svc, err := votes.NewService(params)
	if err != nil {
		return nil, fmt.Errorf("votes service: %w", err)
	}
	return svc, nil
}

func buildWaitlist(ctx context.Context, a *app, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, emitter *events.Emitter, m *metrics.DomainMetrics) (waitlist.Service, error) {
	params := waitlist.ServiceParams{Events: emitter, Metrics: m, Logger: logg}

	switch cfg.Waitlist.Backend {
	case config.BackendBlob:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap gcs: %w", err)
		}
		a.track(client)
		a.ready("gcs", client)
		params.Store = waitlist.NewBlobStore(client, cfg.Waitlist.ObjectName)
	default:
		params.Store = waitlist.NewSQLStore(dbClient.DB())
	}

	svc, err := waitlist.NewService(params)
	if err != nil {
		return nil, fmt.Errorf("waitlist service: %w", err)
	}
	return svc, nil
}

func buildMailer(ctx context.Context, cfg *config.Config, logg *logger.Logger) mailer.Sender {
	if cfg.Sendgrid.APIKey == "" {
		return mailer.LogSender{Logg: logg}
	}
	sender, err := mailer.NewSendGrid(cfg.Sendgrid.APIKey, cfg.Sendgrid.DefaultFrom)
	if err != nil {
		logg.Error(ctx, "sendgrid unavailable; falling back to log sender", err)
		return mailer.LogSender{Logg: logg}
	}
	return sender
}

func buildAuth(ctx context.Context, cfg *config.Config, logg *logger.Logger) (auth.Service, error) {
	provider, err := auth.NewProvider(cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("auth provider: %w", err)
	}

	params := auth.ServiceParams{Provider: provider, Logger: logg}
	if cfg.Firebase.ProjectID != "" {
		verifier, err := pkgauth.NewVerifier(ctx, cfg.Firebase.ProjectID, gcp.ClientOptions(cfg.GCP)...)
		if err != nil {
			return nil, fmt.Errorf("token verifier: %w", err)
		}
		params.Verifier = verifier
	} else {
		logg.Warn(ctx, "firebase project id missing; bearer tokens will be rejected")
	}

	svc, err := auth.NewService(params)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return svc, nil
}
