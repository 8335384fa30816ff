package projects

import (
	"context"
	"sort"
	"sync"

	"github.com/ent0n29/matchwork/internal/reliability"
)

// ErrNotFound is the remote store's answer for a missing project. It is a
// RemoteError so the retry layer treats it as fatal.
var ErrNotFound = &reliability.RemoteError{
	Kind:   reliability.KindNotFound,
	Op:     "projects.get",
	Detail: "project not found",
}

type Store interface {
	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context, status Status, limit int) ([]Project, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	Close() error
}

// MemoryStore keeps projects in process; the store of record when no
// DATABASE_URL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]Project
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]Project)}
}

func (s *MemoryStore) SaveProject(_ context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, status Status, limit int) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Status]int)
	for _, p := range s.projects {
		counts[p.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) Close() error { return nil }
