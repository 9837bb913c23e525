package votes

import (
	"context"
	"errors"
	"time"

	"github.com/wecr8/damp-backend/pkg/enums"
)

// ErrNoVote is returned by Find when the voter has not voted.
var ErrNoVote = errors.New("no vote recorded")

// Record is a stored vote.
type Record struct {
	VoterID   string
	Option    enums.VoteOption
	VoteType  enums.VoteType
	UserAgent string
	CreatedAt time.Time
}

// Store persists votes with at most one record per voter.
type Store interface {
	// InsertIfAbsent writes rec unless the voter already has a vote, in which
	// case inserted is false and existing holds the stored vote.
	InsertIfAbsent(ctx context.Context, rec Record) (inserted bool, existing *Record, err error)
	Find(ctx context.Context, voterID string) (*Record, error)
	Counts(ctx context.Context) (map[enums.VoteOption]int64, error)
}
