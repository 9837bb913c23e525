package worker

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/wecr8/damp-backend/internal/analytics"
	"github.com/wecr8/damp-backend/internal/events"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
)

const workerName = "analytics"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type rowWriter interface {
	Insert(ctx context.Context, row analytics.EventRow) error
	Flush(ctx context.Context) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	Subscription receiver
	Writer       rowWriter
	Guard        eventGuard
	Logger       *logger.Logger
	Metrics      *metrics.WorkerMetrics
}

// Service consumes domain events from Pub/Sub and lands them in BigQuery,
// skipping event ids already written.
type Service struct {
	subscription receiver
	writer       rowWriter
	guard        eventGuard
	logg         *logger.Logger
	metrics      *metrics.WorkerMetrics
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	if params.Writer == nil {
		return nil, errors.New("analytics writer is required")
	}
	if params.Guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: params.Subscription,
		writer:       params.Writer,
		guard:        params.Guard,
		logg:         params.Logger,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes messages until ctx is canceled, then flushes buffered rows.
func (s *Service) Run(ctx context.Context) error {
	err := s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		start := time.Now()
		res := s.process(innerCtx, msg)
		s.metrics.ObserveDuration(workerName, time.Since(start))
		if res.nack {
			s.metrics.IncNack(workerName)
			msg.Nack()
			return
		}
		s.metrics.IncAck(workerName)
		msg.Ack()
	})

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := s.writer.Flush(flushCtx); ferr != nil {
		s.logg.Error(flushCtx, "analytics.flush_failed", ferr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := events.Decode(msg.Data)
	if err != nil {
		// Poison messages are acked; redelivery cannot fix them.
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "analytics.invalid_envelope")
		return processResult{}
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":       env.EventID,
		"event_type":     string(env.EventType),
		"aggregate_type": env.AggregateType,
		"aggregate_id":   env.AggregateID,
	})

	already, err := s.guard.CheckAndMark(logCtx, env.EventID)
	if err != nil {
		s.logg.Error(logCtx, "analytics.idempotency_check_failed", err)
		return processResult{nack: true}
	}
	if already {
		s.logg.Debug(logCtx, "analytics.event_already_processed")
		return processResult{}
	}

	if err := s.writer.Insert(logCtx, analytics.NewEventRow(env, s.now())); err != nil {
		s.logg.Error(logCtx, "analytics.insert_failed", err)
		if rerr := s.guard.Release(logCtx, env.EventID); rerr != nil {
			s.logg.Error(logCtx, "analytics.idempotency_release_failed", rerr)
		}
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "analytics.event_written")
	return processResult{}
}
