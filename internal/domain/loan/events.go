package loan

import "time"

// DecidedEvent is emitted once an application leaves pending.
type DecidedEvent struct {
	LoanID     string    `json:"loan_id"`
	OwnerID    string    `json:"owner_id"`
	DecisionID string    `json:"decision_id"`
	Outcome    Status    `json:"outcome"`
	Note       string    `json:"note,omitempty"`
	DecidedBy  string    `json:"decided_by"`
	DecidedAt  time.Time `json:"decided_at"`
}
