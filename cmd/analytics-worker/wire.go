package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/wecr8/damp-backend/internal/analytics/worker"
	"github.com/wecr8/damp-backend/internal/analytics/writer"
	"github.com/wecr8/damp-backend/pkg/bigquery"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
	"github.com/wecr8/damp-backend/pkg/pubsub"
	"github.com/wecr8/damp-backend/pkg/redis"
)

type analyticsWorker struct {
	service *worker.Service
	closers []io.Closer
}

func (w *analyticsWorker) Close() error {
	var err error
	for i := len(w.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, w.closers[i].Close())
	}
	return err
}

func build(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*analyticsWorker, error) {
	w := &analyticsWorker{}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return w, fmt.Errorf("bootstrap redis: %w", err)
	}
	w.closers = append(w.closers, redisClient)

	ps, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return w, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	w.closers = append(w.closers, ps)

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return w, fmt.Errorf("bootstrap bigquery: %w", err)
	}
	w.closers = append(w.closers, bq)

	subscription, err := ps.AnalyticsSubscription(ctx)
	if err != nil {
		return w, fmt.Errorf("analytics subscription: %w", err)
	}

	guard, err := redis.NewGuard(redisClient, cfg.Eventing.IdempotencyTTL, "analytics")
	if err != nil {
		return w, fmt.Errorf("analytics guard: %w", err)
	}

	rows, err := writer.New(bq, writer.Config{
		Table: bq.EventsTable(),
		Retry: writer.RetryPolicy{MaxAttempts: cfg.BigQuery.InsertAttempts},
	})
	if err != nil {
		return w, fmt.Errorf("bigquery writer: %w", err)
	}

	w.service, err = worker.NewService(worker.ServiceParams{
		Subscription: subscription,
		Writer:       rows,
		Guard:        guard,
		Logger:       logg,
		Metrics:      metrics.NewWorkerMetrics(reg),
	})
	if err != nil {
		return w, fmt.Errorf("analytics worker: %w", err)
	}
	return w, nil
}
