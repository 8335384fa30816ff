package bids

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Bid is a creator's offer on a project. One live bid per
// (project, creator) pair; re-placing updates in place, which keeps
// retried placements idempotent.
type Bid struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	CreatorID string    `json:"creator_id"`
	Amount    int       `json:"amount"`
	Note      string    `json:"note,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaceRequest defines payload for placing a bid.
type PlaceRequest struct {
	ProjectID string `json:"project_id"`
	Amount    int    `json:"amount"`
	Note      string `json:"note"`
}
