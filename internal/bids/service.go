package bids

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/matchwork/internal/feed"
	"github.com/ent0n29/matchwork/internal/observability"
	"github.com/ent0n29/matchwork/internal/projects"
	"github.com/ent0n29/matchwork/internal/reliability"
)

var (
	ErrProjectNotOpen = errors.New("project is not open for bids")
	ErrNotPending     = errors.New("bid is not pending")
	ErrNotOwner       = errors.New("caller does not own this project")
)

// ProjectDirectory is the slice of the projects service this package
// needs.
type ProjectDirectory interface {
	Get(ctx context.Context, id string) (projects.Project, error)
	UpdateStatus(ctx context.Context, id string, status projects.Status, actorID string) (projects.Project, error)
}

// AssignmentAdjuster shifts a creator's workload when a bid is accepted.
type AssignmentAdjuster interface {
	AdjustAssignments(ctx context.Context, id string, delta int) error
}

// Service is the domain layer over the bid store. Every operation here is
// a write or feeds one; nothing degrades silently.
type Service struct {
	store       Store
	projects    ProjectDirectory
	assignments AssignmentAdjuster
	registry    *feed.Registry
	metrics     *observability.Metrics
	log         *slog.Logger

	read  reliability.Policy
	write reliability.Policy
}

func NewService(store Store, projectDir ProjectDirectory, assignments AssignmentAdjuster, registry *feed.Registry, metrics *observability.Metrics, log *slog.Logger) *Service {
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
		store:       store,
		projects:    projectDir,
		assignments: assignments,
		registry:    registry,
		metrics:     metrics,
		log:         log.With("component", "bids"),
		read:        read,
		write:       write,
	}
}

// Place records a creator's offer on an open project. Re-placing updates
// the existing bid in place.
func (s *Service) Place(ctx context.Context, creatorID string, req PlaceRequest) (Bid, error) {
	if strings.TrimSpace(creatorID) == "" {
		return Bid{}, fmt.Errorf("creator id is required")
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return Bid{}, fmt.Errorf("project id is required")
	}
	if req.Amount <= 0 {
		return Bid{}, fmt.Errorf("amount must be positive")
	}

	project, err := s.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return Bid{}, err
	}
	if project.Status != projects.StatusOpen {
		return Bid{}, ErrProjectNotOpen
	}

	now := time.Now().UTC()
	b := Bid{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		CreatorID: creatorID,
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := reliability.Do(ctx, s.write, func(ctx context.Context) (Bid, error) {
		return s.store.SaveBid(ctx, b)
	})
	if err != nil {
		return Bid{}, fmt.Errorf("place bid: %w", err)
	}

	s.publish(feed.Event{
		Type:      feed.EventBidPlaced,
		ProjectID: saved.ProjectID,
		BidID:     saved.ID,
		ActorID:   creatorID,
	})
	return saved, nil
}

// ListByProject returns a project's bids for display; degrades to empty.
func (s *Service) ListByProject(ctx context.Context, projectID string) []Bid {
	return reliability.ReadOr(ctx, s.read, s.log, "bids.list", []Bid{},
		func(ctx context.Context) ([]Bid, error) {
			return s.store.ListBidsByProject(ctx, projectID)
		})
}

// Accept marks one pending bid accepted, declines the project's other
// pending bids, moves the project to matched, and bumps the winning
// creator's workload. Only the project owner may accept.
func (s *Service) Accept(ctx context.Context, ownerID, bidID string) (Bid, error) {
	b, project, err := s.loadForDecision(ctx, ownerID, bidID)
	if err != nil {
		return Bid{}, err
	}
	if project.Status != projects.StatusOpen {
		return Bid{}, ErrProjectNotOpen
	}

	b.Status = StatusAccepted
	b.UpdatedAt = time.Now().UTC()
	accepted, err := reliability.Do(ctx, s.write, func(ctx context.Context) (Bid, error) {
		return s.store.SaveBid(ctx, b)
	})
	if err != nil {
		return Bid{}, fmt.Errorf("accept bid: %w", err)
	}

	s.declineOthers(ctx, project.ID, accepted.ID, ownerID)

	if _, err := s.projects.UpdateStatus(ctx, project.ID, projects.StatusMatched, ownerID); err != nil {
		return Bid{}, fmt.Errorf("mark project matched: %w", err)
	}
	if s.assignments != nil {
		if err := s.assignments.AdjustAssignments(ctx, accepted.CreatorID, 1); err != nil {
			return Bid{}, fmt.Errorf("assign creator: %w", err)
		}
	}

	s.publish(feed.Event{
		Type:      feed.EventBidAccepted,
		ProjectID: accepted.ProjectID,
		BidID:     accepted.ID,
		ActorID:   ownerID,
	})
	return accepted, nil
}

// Decline marks one pending bid declined. Only the project owner may
// decline.
func (s *Service) Decline(ctx context.Context, ownerID, bidID string) (Bid, error) {
	b, _, err := s.loadForDecision(ctx, ownerID, bidID)
	if err != nil {
		return Bid{}, err
	}

	b.Status = StatusDeclined
	b.UpdatedAt = time.Now().UTC()
	declined, err := reliability.Do(ctx, s.write, func(ctx context.Context) (Bid, error) {
		return s.store.SaveBid(ctx, b)
	})
	if err != nil {
		return Bid{}, fmt.Errorf("decline bid: %w", err)
	}

	s.publish(feed.Event{
		Type:      feed.EventBidDeclined,
		ProjectID: declined.ProjectID,
		BidID:     declined.ID,
		ActorID:   ownerID,
	})
	return declined, nil
}

func (s *Service) loadForDecision(ctx context.Context, ownerID, bidID string) (Bid, projects.Project, error) {
	b, err := reliability.Do(ctx, s.read, func(ctx context.Context) (Bid, error) {
		return s.store.GetBid(ctx, bidID)
	})
	if err != nil {
		return Bid{}, projects.Project{}, err
	}
	if b.Status != StatusPending {
		return Bid{}, projects.Project{}, ErrNotPending
	}

	project, err := s.projects.Get(ctx, b.ProjectID)
	if err != nil {
		return Bid{}, projects.Project{}, err
	}
	if project.OwnerID != ownerID {
		return Bid{}, projects.Project{}, ErrNotOwner
	}
	return b, project, nil
}

// declineOthers is best-effort cleanup after an accept: a failed decline
// leaves a stale pending bid, which the owner can still decline by hand.
func (s *Service) declineOthers(ctx context.Context, projectID, acceptedID, ownerID string) {
	others := s.ListByProject(ctx, projectID)
	for _, other := range others {
		if other.ID == acceptedID || other.Status != StatusPending {
			continue
		}
		other.Status = StatusDeclined
		other.UpdatedAt = time.Now().UTC()
		if _, err := reliability.Do(ctx, s.write, func(ctx context.Context) (Bid, error) {
			return s.store.SaveBid(ctx, other)
		}); err != nil {
			s.log.Warn("declining losing bid failed", "bid", other.ID, "err", err)
			continue
		}
		s.publish(feed.Event{
			Type:      feed.EventBidDeclined,
			ProjectID: projectID,
			BidID:     other.ID,
			ActorID:   ownerID,
		})
	}
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
