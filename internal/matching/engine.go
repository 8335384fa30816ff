// Package matching ranks creators against a project brief with additive
// weighted scoring. Pure functions over snapshots; nothing here is cached
// or mutated.
package matching

import (
	"sort"
	"strings"
)

// DefaultLimit is the result size when the caller does not ask for one.
const DefaultLimit = 5

// Candidate availability states.
const (
	Available = "available"
	Busy      = "busy"
	Away      = "away"
)

// Budget tiers, cheapest first.
var tierRank = map[string]int{
	"starter":  0,
	"standard": 1,
	"premium":  2,
}

// Scoring weights. A candidate scoring zero is excluded, not ranked low.
const (
	pointsPerSkill = 3
	maxSkillPoints = 9
	pointsTier     = 2
	pointsDayRate  = 1
	pointsLoad     = 1
)

// Requirements is what a project brief asks of a creator.
type Requirements struct {
	Skills     []string
	BudgetTier string
	MaxDayRate int // 0 means no stated budget line
}

// Candidate is a read-only creator snapshot fetched fresh per matching
// call.
type Candidate struct {
	ID                string
	Skills            []string
	Tier              string
	DayRate           int // 0 means no stated rate
	Availability      string
	ActiveAssignments int
	MaxConcurrent     int // 0 means no stated cap
}

// Match pairs a candidate with its computed relevance score.
type Match struct {
	Candidate Candidate
	Score     int
}

// Rank scores pool against req and returns the top matches, best first,
// truncated to limit. Ties keep input order, so identical inputs always
// produce identical output. An empty pool yields an empty result.
func Rank(req Requirements, pool []Candidate, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}

	matches := make([]Match, 0, len(pool))
	for _, c := range pool {
		score, ok := score(req, c)
		if !ok || score <= 0 {
			continue
		}
		matches = append(matches, Match{Candidate: c, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// score computes the weighted score for one candidate. ok is false when a
// hard constraint excludes the candidate outright. A missing optional
// attribute is a non-match for that criterion only, never an exclusion.
func score(req Requirements, c Candidate) (int, bool) {
	if c.Availability != Available {
		return 0, false
	}
	if c.MaxConcurrent > 0 && c.ActiveAssignments >= c.MaxConcurrent {
		return 0, false
	}

	overlap := skillOverlap(req.Skills, c.Skills)
	if len(req.Skills) > 0 && overlap == 0 {
		return 0, false
	}

	s := overlap * pointsPerSkill
	if s > maxSkillPoints {
		s = maxSkillPoints
	}

	if tierCompatible(req.BudgetTier, c.Tier) {
		s += pointsTier
	}
	if req.MaxDayRate > 0 && c.DayRate > 0 && c.DayRate <= req.MaxDayRate {
		s += pointsDayRate
	}
	if c.MaxConcurrent > 0 && c.ActiveAssignments*2 < c.MaxConcurrent {
		s += pointsLoad
	}
	return s, true
}

func skillOverlap(wanted, have []string) int {
	if len(wanted) == 0 || len(have) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[normalizeSkill(s)] = struct{}{}
	}
	overlap := 0
	for _, s := range wanted {
		if _, ok := set[normalizeSkill(s)]; ok {
			overlap++
		}
	}
	return overlap
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tierCompatible(budgetTier, creatorTier string) bool {
	budget, ok := tierRank[strings.ToLower(strings.TrimSpace(budgetTier))]
	if !ok {
		return false
	}
	creator, ok := tierRank[strings.ToLower(strings.TrimSpace(creatorTier))]
	if !ok {
		return false
	}
	return creator <= budget
}
