package votes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
)

var errStoreDown = errors.New("connection refused")

// failingStore fails every call.
type failingStore struct{}

func (failingStore) InsertIfAbsent(context.Context, Record) (bool, *Record, error) {
	return false, nil, errStoreDown
}
func (failingStore) Find(context.Context, string) (*Record, error) { return nil, errStoreDown }
func (failingStore) Counts(context.Context) (map[enums.VoteOption]int64, error) {
	return nil, errStoreDown
}

var fixedNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store, fallback Store) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: store, Fallback: fallback, Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSubmitAcceptsFirstVoteAndRejectsSecond(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryStore(), nil)

	receipt, err := svc.Submit(ctx, SubmitInput{VoterID: "fp_abc12345", Option: "handle"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.LocalOnly || receipt.Vote.Option != enums.VoteOptionHandle || receipt.Vote.VoteType != enums.VoteTypePublic {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	_, err = svc.Submit(ctx, SubmitInput{VoterID: "fp_abc12345", Option: "cupSleeve"})
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map")
	}
	existing := details["existingVote"].(Vote)
	if existing.Option != enums.VoteOptionHandle {
		t.Fatalf("expected existing vote for handle, got %+v", existing)
	}

	status, err := svc.Status(ctx, "fp_abc12345")
	if err != nil || !status.HasVoted || status.Vote.Option != enums.VoteOptionHandle {
		t.Fatalf("unexpected status %+v err=%v", status, err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), nil)
	if _, err := svc.Submit(context.Background(), SubmitInput{VoterID: "u1", Option: "mug"}); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), SubmitInput{Option: "handle"}); !errors.Is(err, ErrVoterRequired) {
		t.Fatalf("expected ErrVoterRequired, got %v", err)
	}
}

func TestSubmitStorageFailureWithoutFallback(t *testing.T) {
	svc := newTestService(t, failingStore{}, nil)
	_, err := svc.Submit(context.Background(), SubmitInput{VoterID: "u1", Option: "handle"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := svc.Results(context.Background()); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSubmitDegradesToLocalFallback(t *testing.T) {
	ctx := context.Background()
	fallback := NewMemoryStore()
	svc := newTestService(t, failingStore{}, fallback)

	receipt, err := svc.Submit(ctx, SubmitInput{VoterID: "u1", Option: "babyBottle", VoteType: enums.VoteTypeAuthenticated})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !receipt.LocalOnly {
		t.Fatal("expected local-only receipt")
	}

	if _, err := svc.Submit(ctx, SubmitInput{VoterID: "u1", Option: "handle"}); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected duplicate against fallback, got %v", err)
	}

	tally, err := svc.Results(ctx)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if !tally.LocalOnly || tally.TotalVotes != 1 || tally.Results[0].Option != enums.VoteOptionBabyBottle {
		t.Fatalf("unexpected fallback tally %+v", tally)
	}

	status, err := svc.Status(ctx, "u1")
	if err != nil || !status.HasVoted {
		t.Fatalf("expected fallback status, got %+v err=%v", status, err)
	}
}

func TestLocalVoteBlocksLaterPrimaryVote(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	fallback := NewMemoryStore()
	_, _, _ = fallback.InsertIfAbsent(ctx, Record{VoterID: "u9", Option: enums.VoteOptionCupSleeve, VoteType: enums.VoteTypePublic})

	svc := newTestService(t, primary, fallback)
	if _, err := svc.Submit(ctx, SubmitInput{VoterID: "u9", Option: "handle"}); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	if counts, _ := primary.Counts(ctx); len(counts) != 0 {
		t.Fatalf("primary must not record the duplicate, got %v", counts)
	}
}

func TestStatusForNewVoter(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), NewMemoryStore())
	status, err := svc.Status(context.Background(), "nobody")
	if err != nil || status.HasVoted || status.Vote != nil {
		t.Fatalf("unexpected status %+v err=%v", status, err)
	}
}

func TestBuildTallySortsAndRounds(t *testing.T) {
	tally := BuildTally(map[enums.VoteOption]int64{
		enums.VoteOptionCupSleeve:      2,
		enums.VoteOptionSiliconeBottom: 2,
		enums.VoteOptionHandle:         1,
		"unknown":                      50,
	})

	want := []TallyEntry{
		{Option: enums.VoteOptionSiliconeBottom, Name: "Silicone Bottom v1.0", Votes: 2, Percentage: 40},
		{Option: enums.VoteOptionCupSleeve, Name: "Cup Sleeve v1.0", Votes: 2, Percentage: 40},
		{Option: enums.VoteOptionHandle, Name: "DAMP Handle v1.0", Votes: 1, Percentage: 20},
		{Option: enums.VoteOptionBabyBottle, Name: "Baby Bottle v1.0", Votes: 0, Percentage: 0},
	}
	if diff := cmp.Diff(want, tally.Results); diff != "" {
		t.Fatalf("tally mismatch (-want +got):\n%s", diff)
	}
	if tally.TotalVotes != 5 {
		t.Fatalf("expected 5 total votes, got %d", tally.TotalVotes)
	}
}

func TestBuildTallyEmpty(t *testing.T) {
	tally := BuildTally(nil)
	if tally.TotalVotes != 0 || len(tally.Results) != 4 {
		t.Fatalf("unexpected empty tally %+v", tally)
	}
	for _, entry := range tally.Results {
		if entry.Percentage != 0 {
			t.Fatalf("expected zero percentages, got %+v", entry)
		}
	}
}

func TestRejectedVoteLeavesTallyUnchanged(t *testing.T) {
	stores := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{name: "memory", store: func(*testing.T) Store { return NewMemoryStore() }},
		{name: "sql", store: func(t *testing.T) Store { return NewSQLStore(setupVotesTestDB(t)) }},
	}
	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(t, tc.store(t), nil)

			if _, err := svc.Submit(ctx, SubmitInput{VoterID: "fp_abc12345", Option: "handle"}); err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if _, err := svc.Submit(ctx, SubmitInput{VoterID: "fp_abc12345", Option: "cupSleeve"}); !errors.Is(err, ErrAlreadyVoted) {
				t.Fatalf("expected ErrAlreadyVoted, got %v", err)
			}

			tally, err := svc.Results(ctx)
			if err != nil {
				t.Fatalf("Results: %v", err)
			}
			got := map[enums.VoteOption]int64{}
			for _, entry := range tally.Results {
				got[entry.Option] = entry.Votes
			}
			want := map[enums.VoteOption]int64{
				enums.VoteOptionHandle:         1,
				enums.VoteOptionCupSleeve:      0,
				enums.VoteOptionSiliconeBottom: 0,
				enums.VoteOptionBabyBottle:     0,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("tally mismatch (-want +got):\n%s", diff)
			}
			if tally.TotalVotes != 1 {
				t.Fatalf("expected 1 total vote, got %d", tally.TotalVotes)
			}
		})
	}
}
