package creators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/matchwork/internal/cache"
	"github.com/ent0n29/matchwork/internal/matching"
	"github.com/ent0n29/matchwork/internal/observability"
	"github.com/ent0n29/matchwork/internal/reliability"
)

const directoryCacheKey = "creators:directory"

// Service is the domain layer over the creator store. The directory read
// is cached in Redis and degrades to an empty pool; profile fetches
// degrade to a placeholder the UI can render.
type Service struct {
	store Store
	cache *cache.Client
	log   *slog.Logger

	read  reliability.Policy
	write reliability.Policy
}

func NewService(store Store, cacheClient *cache.Client, metrics *observability.Metrics, log *slog.Logger) *Service {
	read := reliability.FastRead()
	write := reliability.CriticalWrite()
	if metrics != nil {
		read = metrics.InstrumentRead(read)
		write = metrics.InstrumentWrite(write)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		cache: cacheClient,
		log:   log.With("component", "creators"),
		read:  read,
		write: write,
	}
}

// Upsert creates or updates a profile. Write path: failures propagate.
func (s *Service) Upsert(ctx context.Context, id string, req UpsertRequest) (Creator, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Creator{}, fmt.Errorf("name is required")
	}
	availability := strings.ToLower(strings.TrimSpace(req.Availability))
	if availability == "" {
		availability = Available
	}
	if !validAvailability(availability) {
		return Creator{}, fmt.Errorf("invalid availability %q", req.Availability)
	}

	now := time.Now().UTC()
	c := Creator{
		ID:            strings.TrimSpace(id),
		Name:          strings.TrimSpace(req.Name),
		Skills:        normalizeSkills(req.Skills),
		Tier:          strings.ToLower(strings.TrimSpace(req.Tier)),
		DayRate:       req.DayRate,
		Availability:  availability,
		MaxConcurrent: req.MaxConcurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if existing, err := s.Get(ctx, c.ID); err == nil && existing.ID == c.ID {
		c.CreatedAt = existing.CreatedAt
		c.ActiveAssignments = existing.ActiveAssignments
	}

	_, err := reliability.Do(ctx, s.write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.SaveCreator(ctx, c)
	})
	if err != nil {
		return Creator{}, fmt.Errorf("upsert creator: %w", err)
	}
	s.invalidateDirectory(ctx)
	return c, nil
}

// Get fetches one profile, degrading to a placeholder so a dashboard tile
// can always render something. Callers needing a hard not-found use
// Lookup.
func (s *Service) Get(ctx context.Context, id string) (Creator, error) {
	return reliability.Do(ctx, s.read, func(ctx context.Context) (Creator, error) {
		return s.store.GetCreator(ctx, id)
	})
}

// Profile is the display read: on persistent failure it returns a
// placeholder, never an error.
func (s *Service) Profile(ctx context.Context, id string) Creator {
	return reliability.ReadOr(ctx, s.read, s.log, "creators.profile", Placeholder(id),
		func(ctx context.Context) (Creator, error) {
			return s.store.GetCreator(ctx, id)
		})
}

// Directory lists creators for browsing, read through the Redis cache.
// Cache trouble degrades to the store; store trouble degrades to empty.
func (s *Service) Directory(ctx context.Context, limit int) []Creator {
	var cached []Creator
	if ok, err := s.cache.GetJSON(ctx, directoryCacheKey, &cached); err != nil {
		s.log.Warn("directory cache read failed", "err", err)
	} else if ok {
		if limit > 0 && len(cached) > limit {
			cached = cached[:limit]
		}
		return cached
	}

	out := reliability.ReadOr(ctx, s.read, s.log, "creators.directory", []Creator{},
		func(ctx context.Context) ([]Creator, error) {
			return s.store.ListCreators(ctx, 0)
		})

	if len(out) > 0 {
		if err := s.cache.SetJSON(ctx, directoryCacheKey, out); err != nil {
			s.log.Warn("directory cache write failed", "err", err)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Candidates snapshots the directory as a matching pool. A degraded
// directory yields an empty pool, which ranks to an empty result.
func (s *Service) Candidates(ctx context.Context) []matching.Candidate {
	dir := s.Directory(ctx, 0)
	out := make([]matching.Candidate, 0, len(dir))
	for _, c := range dir {
		out = append(out, matching.Candidate{
			ID:                c.ID,
			Skills:            c.Skills,
			Tier:              c.Tier,
			DayRate:           c.DayRate,
			Availability:      c.Availability,
			ActiveAssignments: c.ActiveAssignments,
			MaxConcurrent:     c.MaxConcurrent,
		})
	}
	return out
}

// AdjustAssignments shifts a creator's workload when work is assigned or
// released. Write path: failures propagate.
func (s *Service) AdjustAssignments(ctx context.Context, id string, delta int) error {
	_, err := reliability.Do(ctx, s.write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.AdjustAssignments(ctx, id, delta)
	})
	if err != nil {
		return fmt.Errorf("adjust assignments: %w", err)
	}
	s.invalidateDirectory(ctx)
	return nil
}

func (s *Service) invalidateDirectory(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, directoryCacheKey); err != nil {
		s.log.Warn("directory cache invalidate failed", "err", err)
	}
}

// Placeholder is the degraded stand-in for an unreachable profile.
func Placeholder(id string) Creator {
	return Creator{
		ID:           id,
		Name:         "Unavailable",
		Availability: Away,
	}
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
