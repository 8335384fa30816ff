package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/matchwork/internal/cache"
	"github.com/ent0n29/matchwork/internal/feed"
	"github.com/ent0n29/matchwork/internal/observability"
	"github.com/ent0n29/matchwork/internal/reliability"
)

var ErrNotOwner = errors.New("caller does not own this project")

const countsCacheKey = "projects:counts"

// Service is the domain layer over the project store: reads degrade to
// safe defaults, writes propagate failure and publish feed events.
type Service struct {
	store    Store
	cache    *cache.Client
	registry *feed.Registry
	metrics  *observability.Metrics
	log      *slog.Logger

	read  reliability.Policy
	write reliability.Policy
}

func NewService(store Store, cacheClient *cache.Client, registry *feed.Registry, metrics *observability.Metrics, log *slog.Logger) *Service {
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
		store:    store,
		cache:    cacheClient,
		registry: registry,
		metrics:  metrics,
		log:      log.With("component", "projects"),
		read:     read,
		write:    write,
	}
}

// Create posts a new project. Write path: failures always reach the
// caller.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (Project, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Project{}, fmt.Errorf("owner id is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return Project{}, fmt.Errorf("title is required")
	}

	now := time.Now().UTC()
	p := Project{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Title:      strings.TrimSpace(req.Title),
		Brief:      strings.TrimSpace(req.Brief),
		Skills:     normalizeSkills(req.Skills),
		BudgetTier: strings.ToLower(strings.TrimSpace(req.BudgetTier)),
		MaxDayRate: req.MaxDayRate,
		Status:     StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := reliability.Do(ctx, s.write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.SaveProject(ctx, p)
	})
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}

	s.invalidateCounts(ctx)
	s.publish(feed.Event{
		Type:      feed.EventProjectCreated,
		ProjectID: p.ID,
		ActorID:   ownerID,
	})
	return p, nil
}

// Get fetches one project. Not degraded: a detail view needs a real
// not-found, so failures propagate.
func (s *Service) Get(ctx context.Context, id string) (Project, error) {
	return reliability.Do(ctx, s.read, func(ctx context.Context) (Project, error) {
		return s.store.GetProject(ctx, id)
	})
}

// List returns projects for display; on persistent failure it degrades to
// an empty slice, which the UI renders as "nothing to show".
func (s *Service) List(ctx context.Context, status Status, limit int) []Project {
	return reliability.ReadOr(ctx, s.read, s.log, "projects.list", []Project{},
		func(ctx context.Context) ([]Project, error) {
			return s.store.ListProjects(ctx, status, limit)
		})
}

// CountByStatus returns dashboard counts, cached briefly in Redis. Cache
// trouble degrades to the store; store trouble degrades to zero counts.
func (s *Service) CountByStatus(ctx context.Context) map[Status]int {
	var cached map[Status]int
	if ok, err := s.cache.GetJSON(ctx, countsCacheKey, &cached); err != nil {
		s.log.Warn("counts cache read failed", "err", err)
	} else if ok {
		return cached
	}

	counts := reliability.ReadOr(ctx, s.read, s.log, "projects.count", map[Status]int{},
		func(ctx context.Context) (map[Status]int, error) {
			return s.store.CountByStatus(ctx)
		})

	if len(counts) > 0 {
		if err := s.cache.SetJSON(ctx, countsCacheKey, counts); err != nil {
			s.log.Warn("counts cache write failed", "err", err)
		}
	}
	return counts
}

// UpdateStatus moves a project through its lifecycle. Only the owner may
// do this; write-path failures always propagate.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, actorID string) (Project, error) {
	if !validStatus(status) {
		return Project{}, fmt.Errorf("invalid status %q", status)
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if p.OwnerID != actorID {
		return Project{}, ErrNotOwner
	}

	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	_, err = reliability.Do(ctx, s.write, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.SaveProject(ctx, p)
	})
	if err != nil {
		return Project{}, fmt.Errorf("update project status: %w", err)
	}

	s.invalidateCounts(ctx)
	s.publish(feed.Event{
		Type:      feed.EventProjectUpdated,
		ProjectID: p.ID,
		ActorID:   actorID,
	})
	return p, nil
}

func (s *Service) publish(ev feed.Event) {
	if s.metrics != nil {
		s.metrics.ObserveMarketplaceEvent(string(ev.Type))
	}
	if s.registry == nil {
		return
	}
	s.registry.Publish(feed.ChannelMarketplace, ev)
	if ev.ProjectID != "" {
		s.registry.Publish(feed.ProjectChannel(ev.ProjectID), ev)
	}
}

func (s *Service) invalidateCounts(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, countsCacheKey); err != nil {
		s.log.Warn("counts cache invalidate failed", "err", err)
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
