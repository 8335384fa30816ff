package projects

import "time"

type Status string

const (
	StatusOpen    Status = "open"
	StatusMatched Status = "matched"
	StatusClosed  Status = "closed"
)

// Project is a brief posted by a business looking for a creator.
type Project struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Brief      string    `json:"brief"`
	Skills     []string  `json:"skills"`
	BudgetTier string    `json:"budget_tier"`
	MaxDayRate int       `json:"max_day_rate,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateRequest defines payload for posting a new project.
type CreateRequest struct {
	Title      string   `json:"title"`
	Brief      string   `json:"brief"`
	Skills     []string `json:"skills"`
	BudgetTier string   `json:"budget_tier"`
	MaxDayRate int      `json:"max_day_rate"`
}

func validStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusMatched, StatusClosed:
		return true
	default:
		return false
	}
}
