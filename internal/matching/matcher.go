package matching

import (
	"context"

	"github.com/ent0n29/matchwork/internal/projects"
)

// ProjectSource is the slice of the projects service the matcher needs.
type ProjectSource interface {
	Get(ctx context.Context, id string) (projects.Project, error)
}

// CandidatePool supplies the creator snapshots to rank. A degraded pool
// is empty, which ranks to an empty result rather than an error.
type CandidatePool interface {
	Candidates(ctx context.Context) []Candidate
}

// Matcher glues the pure ranking engine to the marketplace: project brief
// in, ranked creators out.
type Matcher struct {
	projects     ProjectSource
	pool         CandidatePool
	defaultLimit int
}

func NewMatcher(projectSrc ProjectSource, pool CandidatePool, defaultLimit int) *Matcher {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Matcher{
		projects:     projectSrc,
		pool:         pool,
		defaultLimit: defaultLimit,
	}
}

// ForProject ranks the current candidate pool against the project's
// brief. A missing project propagates; an unreachable pool yields an
// empty ranking.
func (m *Matcher) ForProject(ctx context.Context, projectID string, limit int) ([]Match, error) {
	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = m.defaultLimit
	}
	req := Requirements{
		Skills:     p.Skills,
		BudgetTier: p.BudgetTier,
		MaxDayRate: p.MaxDayRate,
	}
	return Rank(req, m.pool.Candidates(ctx), limit), nil
}
