package bids

import (
	"context"
	"sort"
	"sync"

	"github.com/ent0n29/matchwork/internal/reliability"
)

// ErrNotFound is the remote store's answer for a missing bid; fatal to
// the retry layer.
var ErrNotFound = &reliability.RemoteError{
	Kind:   reliability.KindNotFound,
	Op:     "bids.get",
	Detail: "bid not found",
}

type Store interface {
	// SaveBid upserts by (ProjectID, CreatorID); the returned bid carries
	// the authoritative ID when an existing pair was updated.
	SaveBid(ctx context.Context, b Bid) (Bid, error)
	GetBid(ctx context.Context, id string) (Bid, error)
	ListBidsByProject(ctx context.Context, projectID string) ([]Bid, error)
	Close() error
}

// MemoryStore keeps bids in process; the store of record when no
// DATABASE_URL is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	bids   map[string]Bid
	byPair map[string]string // projectID+"\x00"+creatorID -> bid ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bids:   make(map[string]Bid),
		byPair: make(map[string]string),
	}
}

func pairKey(projectID, creatorID string) string {
	return projectID + "\x00" + creatorID
}

func (s *MemoryStore) SaveBid(_ context.Context, b Bid) (Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(b.ProjectID, b.CreatorID)
	if existingID, ok := s.byPair[key]; ok && existingID != b.ID {
		existing := s.bids[existingID]
		existing.Amount = b.Amount
		existing.Note = b.Note
		existing.Status = b.Status
		existing.UpdatedAt = b.UpdatedAt
		s.bids[existingID] = existing
		return existing, nil
	}
	s.bids[b.ID] = b
	s.byPair[key] = b.ID
	return b, nil
}

func (s *MemoryStore) GetBid(_ context.Context, id string) (Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[id]
	if !ok {
		return Bid{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) ListBidsByProject(_ context.Context, projectID string) ([]Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Bid
	for _, b := range s.bids {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
