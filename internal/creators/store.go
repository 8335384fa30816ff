package creators

import (
	"context"
	"sort"
	"sync"

	"github.com/ent0n29/matchwork/internal/reliability"
)

// ErrNotFound is the remote store's answer for a missing profile; fatal
// to the retry layer.
var ErrNotFound = &reliability.RemoteError{
	Kind:   reliability.KindNotFound,
	Op:     "creators.get",
	Detail: "creator not found",
}

type Store interface {
	SaveCreator(ctx context.Context, c Creator) error
	GetCreator(ctx context.Context, id string) (Creator, error)
	ListCreators(ctx context.Context, limit int) ([]Creator, error)
	AdjustAssignments(ctx context.Context, id string, delta int) error
	Close() error
}

// MemoryStore keeps profiles in process; the store of record when no
// DATABASE_URL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	creators map[string]Creator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creators: make(map[string]Creator)}
}

func (s *MemoryStore) SaveCreator(_ context.Context, c Creator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCreator(_ context.Context, id string) (Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creators[id]
	if !ok {
		return Creator{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListCreators(_ context.Context, limit int) ([]Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Creator, 0, len(s.creators))
	for _, c := range s.creators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AdjustAssignments(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creators[id]
	if !ok {
		return ErrNotFound
	}
	c.ActiveAssignments += delta
	if c.ActiveAssignments < 0 {
		c.ActiveAssignments = 0
	}
	s.creators[id] = c
	return nil
}

func (s *MemoryStore) Close() error { return nil }
