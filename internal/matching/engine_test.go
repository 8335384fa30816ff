package matching

import (
	"reflect"
	"testing"
)

func TestRankSkillOverlapRequired(t *testing.T) {
	req := Requirements{Skills: []string{"video"}}
	pool := []Candidate{
		{ID: "a", Skills: []string{"video"}, Availability: Available},
		{ID: "b", Skills: []string{"design"}, Availability: Available},
	}

	got := Rank(req, pool, 0)
	if len(got) != 1 {
		t.Fatalf("Rank() returned %d matches, want 1", len(got))
	}
	if got[0].Candidate.ID != "a" {
		t.Fatalf("Rank()[0] = %q, want %q", got[0].Candidate.ID, "a")
	}
	if got[0].Score <= 0 {
		t.Fatalf("Rank()[0].Score = %d, want > 0", got[0].Score)
	}
}

func TestRankHardConstraintsExclude(t *testing.T) {
	req := Requirements{Skills: []string{"video"}}
	pool := []Candidate{
		{ID: "unavailable", Skills: []string{"video"}, Availability: Busy},
		{ID: "at-capacity", Skills: []string{"video"}, Availability: Available, ActiveAssignments: 3, MaxConcurrent: 3},
		{ID: "ok", Skills: []string{"video"}, Availability: Available, MaxConcurrent: 3},
	}

	got := Rank(req, pool, 0)
	if len(got) != 1 {
		t.Fatalf("Rank() returned %d matches, want 1", len(got))
	}
	if got[0].Candidate.ID != "ok" {
		t.Fatalf("Rank()[0] = %q, want %q", got[0].Candidate.ID, "ok")
	}
}

func TestRankEmptyPool(t *testing.T) {
	got := Rank(Requirements{Skills: []string{"video"}}, nil, 0)
	if len(got) != 0 {
		t.Fatalf("Rank(empty pool) = %v, want empty", got)
	}
}

func TestRankOrderingAndTieBreak(t *testing.T) {
	req := Requirements{
		Skills:     []string{"video", "motion"},
		BudgetTier: "premium",
		MaxDayRate: 500,
	}
	pool := []Candidate{
		// One skill, no tier, no rate match.
		{ID: "low", Skills: []string{"video"}, Availability: Available},
		// Two skills + tier + rate + light load: best.
		{ID: "best", Skills: []string{"video", "motion"}, Tier: "standard", DayRate: 400, Availability: Available, MaxConcurrent: 4},
		// Same score as "tie-b"; first seen must win.
		{ID: "tie-a", Skills: []string{"video"}, Tier: "standard", Availability: Available},
		{ID: "tie-b", Skills: []string{"motion"}, Tier: "standard", Availability: Available},
	}

	got := Rank(req, pool, 0)
	if len(got) != 4 {
		t.Fatalf("Rank() returned %d matches, want 4", len(got))
	}
	if got[0].Candidate.ID != "best" {
		t.Fatalf("Rank()[0] = %q, want %q", got[0].Candidate.ID, "best")
	}
	tieA, tieB := -1, -1
	for i, m := range got {
		switch m.Candidate.ID {
		case "tie-a":
			tieA = i
		case "tie-b":
			tieB = i
		}
	}
	if tieA == -1 || tieB == -1 || tieA > tieB {
		t.Fatalf("tie-break order = (%d, %d), want tie-a before tie-b", tieA, tieB)
	}
}

func TestRankIdempotent(t *testing.T) {
	req := Requirements{Skills: []string{"video", "design"}, BudgetTier: "standard"}
	pool := []Candidate{
		{ID: "a", Skills: []string{"video"}, Tier: "starter", Availability: Available},
		{ID: "b", Skills: []string{"design"}, Tier: "standard", Availability: Available},
		{ID: "c", Skills: []string{"video", "design"}, Availability: Available},
	}

	first := Rank(req, pool, 0)
	second := Rank(req, pool, 0)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Rank() not idempotent:\nfirst  = %v\nsecond = %v", first, second)
	}
}

func TestRankTruncatesToLimit(t *testing.T) {
	req := Requirements{Skills: []string{"video"}}
	var pool []Candidate
	for i := 0; i < 10; i++ {
		pool = append(pool, Candidate{
			ID:           string(rune('a' + i)),
			Skills:       []string{"video"},
			Availability: Available,
		})
	}

	if got := Rank(req, pool, 3); len(got) != 3 {
		t.Fatalf("Rank(limit=3) returned %d matches, want 3", len(got))
	}
	if got := Rank(req, pool, 0); len(got) != DefaultLimit {
		t.Fatalf("Rank(limit=0) returned %d matches, want default %d", len(got), DefaultLimit)
	}
}

func TestRankMissingDayRateIsNotExcluded(t *testing.T) {
	req := Requirements{Skills: []string{"video"}, MaxDayRate: 300}
	pool := []Candidate{
		{ID: "priced", Skills: []string{"video"}, DayRate: 250, Availability: Available},
		{ID: "unpriced", Skills: []string{"video"}, Availability: Available},
	}

	got := Rank(req, pool, 0)
	if len(got) != 2 {
		t.Fatalf("Rank() returned %d matches, want 2", len(got))
	}
	if got[0].Candidate.ID != "priced" {
		t.Fatalf("Rank()[0] = %q, want the rate-matching candidate first", got[0].Candidate.ID)
	}
	if got[1].Candidate.ID != "unpriced" {
		t.Fatalf("Rank()[1] = %q, want the unpriced candidate still ranked", got[1].Candidate.ID)
	}
}
