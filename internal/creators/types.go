package creators

import "time"

// Availability states a creator can advertise.
const (
	Available = "available"
	Busy      = "busy"
	Away      = "away"
)

// Creator is a vendor profile that bids on projects.
type Creator struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Skills            []string  `json:"skills"`
	Tier              string    `json:"tier"`
	DayRate           int       `json:"day_rate,omitempty"` // 0 means not stated
	Availability      string    `json:"availability"`
	ActiveAssignments int       `json:"active_assignments"`
	MaxConcurrent     int       `json:"max_concurrent"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpsertRequest defines payload for creating or updating a profile.
type UpsertRequest struct {
	Name          string   `json:"name"`
	Skills        []string `json:"skills"`
	Tier          string   `json:"tier"`
	DayRate       int      `json:"day_rate"`
	Availability  string   `json:"availability"`
	MaxConcurrent int      `json:"max_concurrent"`
}

func validAvailability(s string) bool {
	switch s {
	case Available, Busy, Away:
		return true
	default:
		return false
	}
}
