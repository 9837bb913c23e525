package votes

import (
	"context"
	"sync"

	"github.com/wecr8/damp-backend/pkg/enums"
)

// MemoryStore is the process-local fallback used while the primary store is down.
type MemoryStore struct {
	mu    sync.Mutex
	votes map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{votes: map[string]Record{}}
}

func (m *MemoryStore) InsertIfAbsent(_ context.Context, rec Record) (bool, *Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.votes[rec.VoterID]; ok {
		return false, &existing, nil
	}
	m.votes[rec.VoterID] = rec
	return true, nil, nil
}

func (m *MemoryStore) Find(_ context.Context, voterID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.votes[voterID]
	if !ok {
		return nil, ErrNoVote
	}
	return &rec, nil
}

func (m *MemoryStore) Counts(context.Context) (map[enums.VoteOption]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[enums.VoteOption]int64{}
	for _, rec := range m.votes {
		counts[rec.Option]++
	}
	return counts, nil
}
