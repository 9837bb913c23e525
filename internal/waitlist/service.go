package waitlist

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/wecr8/damp-backend/internal/events"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
	"github.com/wecr8/damp-backend/pkg/security"
)

const (
	maxNameLength   = 120
	maxSourceLength = 40
)

var (
	ErrInvalidEmail       = pkgerrors.New(pkgerrors.CodeValidation, "valid email required")
	ErrStorageUnavailable = pkgerrors.New(pkgerrors.CodeDependency, "waitlist storage unavailable")
)

type SaveInput struct {
	Email  string
	Name   string
	Source string
	IP     string
}

// Result reports the outcome of Save. Entry is nil when the email was already present.
type Result struct {
	Entry         *Entry `json:"entry,omitempty"`
	Count         int64  `json:"count"`
	AlreadyExists bool   `json:"alreadyExists"`
}

type ServiceParams struct {
	Store   Store
	Events  *events.Emitter
	Metrics *metrics.DomainMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type Service interface {
	Save(ctx context.Context, in SaveInput) (*Result, error)
	Count(ctx context.Context) (int64, error)
}

type service struct {
	store    Store
	events   *events.Emitter
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	now      func() time.Time
	validate *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "waitlist store is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:    params.Store,
		events:   params.Events,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
		validate: validator.New(),
	}, nil
}

// normalizeEmail lowercases and trims raw, returning ErrInvalidEmail when it is not an address.
func (s *service) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (s *service) Save(ctx context.Context, in SaveInput) (*Result, error) {
	source := enums.WaitlistSource(truncate(in.Source, maxSourceLength)).OrDefault()
	email, err := s.normalizeEmail(in.Email)
	if err != nil {
		s.metrics.Waitlist(string(source), "invalid")
		return nil, err
	}

	entry := Entry{
		Email:     email,
		Name:      truncate(in.Name, maxNameLength),
		Source:    source,
		IP:        strings.TrimSpace(in.IP),
		Timestamp: s.now().UTC(),
	}

	inserted, count, err := s.store.Insert(ctx, entry)
	if err != nil {
		s.metrics.Waitlist(string(source), "error")
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "source", string(source)), "waitlist.save_failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrStorageUnavailable.Message())
	}
	if !inserted {
		s.metrics.Waitlist(string(source), "duplicate")
		return &Result{Count: count, AlreadyExists: true}, nil
	}

	s.metrics.Waitlist(string(source), "joined")
	s.events.Emit(ctx, enums.EventWaitlistJoined, "waitlist", security.HashEmail(email), events.WaitlistJoined{
		EmailHash: security.HashEmail(email),
		Source:    string(source),
		Count:     count,
	})
	return &Result{Entry: &entry, Count: count}, nil
}

func (s *service) Count(ctx context.Context) (int64, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrStorageUnavailable.Message())
	}
	return count, nil
}

// truncate keeps at most max runes so the result stays valid UTF-8.
func truncate(v string, max int) string {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) <= max {
		return v
	}
	return strings.TrimSpace(string([]rune(v)[:max]))
}
