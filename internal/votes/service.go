package votes

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/wecr8/damp-backend/internal/events"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
	"github.com/wecr8/damp-backend/pkg/money"
)

var (
	ErrInvalidOption      = pkgerrors.New(pkgerrors.CodeValidation, "invalid vote option")
	ErrVoterRequired      = pkgerrors.New(pkgerrors.CodeValidation, "voter identity is required")
	ErrAlreadyVoted       = pkgerrors.New(pkgerrors.CodeConflict, "you have already voted")
	ErrStorageUnavailable = pkgerrors.New(pkgerrors.CodeDependency, "vote storage unavailable")
)

// Vote is the public view of a stored vote.
type Vote struct {
	Option     enums.VoteOption `json:"option"`
	OptionName string           `json:"optionName"`
	VoteType   enums.VoteType   `json:"voteType"`
	Timestamp  time.Time        `json:"timestamp"`
}

type Receipt struct {
	Vote      Vote `json:"vote"`
	LocalOnly bool `json:"localOnly"`
}

type Status struct {
	HasVoted bool  `json:"hasVoted"`
	Vote     *Vote `json:"vote,omitempty"`
}

type TallyEntry struct {
	Option     enums.VoteOption `json:"option"`
	Name       string           `json:"name"`
	Votes      int64            `json:"votes"`
	Percentage float64          `json:"percentage"`
}

type Tally struct {
	Results    []TallyEntry `json:"results"`
	TotalVotes int64        `json:"totalVotes"`
	LocalOnly  bool         `json:"localOnly"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type SubmitInput struct {
	VoterID   string
	Option    string
	VoteType  enums.VoteType
	UserAgent string
}

// AlreadyVoted builds the conflict error carrying the stored vote.
func AlreadyVoted(existing Vote) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, ErrAlreadyVoted.Message()).
		WithDetails(map[string]any{"existingVote": existing})
}

// ServiceParams groups dependencies for the vote recorder.
type ServiceParams struct {
	Store Store
	// Fallback, when set, absorbs votes while Store is failing.
	Fallback Store
	Events   *events.Emitter
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*Receipt, error)
	Status(ctx context.Context, voterID string) (*Status, error)
	Results(ctx context.Context) (*Tally, error)
}

type service struct {
	store    Store
	fallback Store
	events   *events.Emitter
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vote store is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:    params.Store,
		fallback: params.Fallback,
		events:   params.Events,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (*Receipt, error) {
	voterID := strings.TrimSpace(in.VoterID)
	if voterID == "" {
		return nil, ErrVoterRequired
	}
	option, err := enums.ParseVoteOption(strings.TrimSpace(in.Option))
	if err != nil {
		s.metrics.Vote(in.Option, "invalid", false)
		return nil, ErrInvalidOption
	}
	voteType := in.VoteType
	if !voteType.IsValid() {
		voteType = enums.VoteTypePublic
	}

	rec := Record{
		VoterID:   voterID,
		Option:    option,
		VoteType:  voteType,
		UserAgent: in.UserAgent,
		CreatedAt: s.now().UTC(),
	}

	if s.fallback != nil {
		// a vote accepted locally during an outage still counts as the voter's vote
		if prior, err := s.fallback.Find(ctx, voterID); err == nil {
			s.metrics.Vote(string(option), "duplicate", true)
			return nil, AlreadyVoted(toView(*prior))
		}
	}

	inserted, existing, err := s.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return s.submitLocal(ctx, rec, err)
	}
	if !inserted {
		s.metrics.Vote(string(option), "duplicate", false)
		if existing == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, ErrAlreadyVoted.Message())
		}
		return nil, AlreadyVoted(toView(*existing))
	}

	s.metrics.Vote(string(option), "accepted", false)
	s.emit(ctx, rec, false)
	return &Receipt{Vote: toView(rec)}, nil
}

func (s *service) submitLocal(ctx context.Context, rec Record, cause error) (*Receipt, error) {
	ctx = s.logCtx(ctx, rec.VoterID)
	if s.fallback == nil {
		s.metrics.Vote(string(rec.Option), "error", false)
		if s.logg != nil {
			s.logg.Error(ctx, "votes.store_failed", cause)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, cause, ErrStorageUnavailable.Message())
	}

	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "votes.store_failed_using_local_fallback")
	}
	inserted, existing, err := s.fallback.InsertIfAbsent(ctx, rec)
	if err != nil {
		s.metrics.Vote(string(rec.Option), "error", true)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.Join(cause, err), ErrStorageUnavailable.Message())
	}
	if !inserted && existing != nil {
		s.metrics.Vote(string(rec.Option), "duplicate", true)
		return nil, AlreadyVoted(toView(*existing))
	}

	s.metrics.Vote(string(rec.Option), "accepted", true)
	s.emit(ctx, rec, true)
	return &Receipt{Vote: toView(rec), LocalOnly: true}, nil
}

func (s *service) Status(ctx context.Context, voterID string) (*Status, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return nil, ErrVoterRequired
	}

	rec, err := s.store.Find(ctx, voterID)
	switch {
	case err == nil:
		view := toView(*rec)
		return &Status{HasVoted: true, Vote: &view}, nil
	case errors.Is(err, ErrNoVote):
	default:
		if s.fallback == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrStorageUnavailable.Message())
		}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(s.logCtx(ctx, voterID), "error", err.Error()), "votes.status_using_local_fallback")
		}
	}

	if s.fallback != nil {
		if local, err := s.fallback.Find(ctx, voterID); err == nil {
			view := toView(*local)
			return &Status{HasVoted: true, Vote: &view}, nil
		}
	}
	return &Status{HasVoted: false}, nil
}

func (s *service) Results(ctx context.Context) (*Tally, error) {
	counts, err := s.store.Counts(ctx)
	localOnly := false
	if err != nil {
		if s.fallback == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrStorageUnavailable.Message())
		}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "votes.results_using_local_fallback")
		}
		counts, err = s.fallback.Counts(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrStorageUnavailable.Message())
		}
		localOnly = true
	}

	tally := BuildTally(counts)
	tally.LocalOnly = localOnly
	tally.UpdatedAt = s.now().UTC()
	return &tally, nil
}

// BuildTally orders every option by votes descending, then display order.
// Unknown options in counts are ignored.
func BuildTally(counts map[enums.VoteOption]int64) Tally {
	var total int64
	for _, opt := range enums.VoteOptions {
		total += counts[opt]
	}

	entries := make([]TallyEntry, 0, len(enums.VoteOptions))
	for _, opt := range enums.VoteOptions {
		entries = append(entries, TallyEntry{
			Option:     opt,
			Name:       opt.DisplayName(),
			Votes:      counts[opt],
			Percentage: money.Percent(counts[opt], total, 0),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return entries[i].Option.Position() < entries[j].Option.Position()
	})
	return Tally{Results: entries, TotalVotes: total}
}

func (s *service) emit(ctx context.Context, rec Record, localOnly bool) {
	s.events.Emit(ctx, enums.EventVoteCast, "vote", rec.VoterID, events.VoteCast{
		VoterID:   rec.VoterID,
		Option:    string(rec.Option),
		VoteType:  string(rec.VoteType),
		LocalOnly: localOnly,
	})
}

func (s *service) logCtx(ctx context.Context, voterID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithVoterID(ctx, voterID)
}

func toView(rec Record) Vote {
	return Vote{
		Option:     rec.Option,
		OptionName: rec.Option.DisplayName(),
		VoteType:   rec.VoteType,
		Timestamp:  rec.CreatedAt,
	}
}
