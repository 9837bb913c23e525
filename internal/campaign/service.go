package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/wecr8/damp-backend/pkg/config"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

var (
	ErrInvalidQuantity     = pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	ErrInvalidAdjustment   = pkgerrors.New(pkgerrors.CodeValidation, "adjustment must be non-zero")
	ErrReasonRequired      = pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
	ErrCountersUnavailable = pkgerrors.New(pkgerrors.CodeDependency, "campaign counters unavailable")
)

// Adjustment is the result of an admin correction.
type Adjustment struct {
	Previous int64  `json:"previous"`
	Current  int64  `json:"current"`
	Delta    int64  `json:"delta"`
	Reason   string `json:"reason"`
}

type Service interface {
	Status(ctx context.Context) (*Status, error)
	// Record adds qty pre-orders and returns the milestones it newly reached.
	Record(ctx context.Context, qty int64) ([]int64, error)
	Adjust(ctx context.Context, delta int64, reason string) (*Adjustment, error)
}

type ServiceParams struct {
	Store  counterStore
	Config config.CampaignConfig
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	counters redisCounters
	cfg      config.CampaignConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign store is required")
	}
	if params.Config.GoalUnits <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign goal must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		counters: redisCounters{kv: params.Store},
		cfg:      params.Config,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Status(ctx context.Context) (*Status, error) {
	counts, err := s.counters.load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrCountersUnavailable.Message())
	}
	status := BuildStatus(s.cfg, counts, s.now())
	return &status, nil
}

func (s *service) Record(ctx context.Context, qty int64) ([]int64, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	now := s.now()
	total, err := s.counters.add(ctx, qty, now, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrCountersUnavailable.Message())
	}

	var reached []int64
	for _, m := range crossed(total-qty, total) {
		first, err := s.counters.markMilestone(ctx, m, now)
		if err != nil {
			s.warn(ctx, "campaign.milestone_failed", map[string]any{"milestone": m, "error": err.Error()})
			continue
		}
		if first {
			reached = append(reached, m)
			s.info(ctx, "campaign.milestone_reached", map[string]any{"milestone": m, "total": total})
		}
	}
	return reached, nil
}

func (s *service) Adjust(ctx context.Context, delta int64, reason string) (*Adjustment, error) {
	if delta == 0 {
		return nil, ErrInvalidAdjustment
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	total, err := s.counters.add(ctx, delta, s.now(), false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrCountersUnavailable.Message())
	}
	adj := &Adjustment{Previous: total - delta, Current: total, Delta: delta, Reason: reason}
	s.info(ctx, "campaign.count_adjusted", map[string]any{
		"previous": adj.Previous,
		"current":  adj.Current,
		"reason":   reason,
	})
	return adj, nil
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
