package decision

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("decision not found")
)

// Table: loan_decisions. One row per decided application.
type Decision struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Public identifier (32-char lowercase hex)
	DecisionID string `gorm:"column:decision_id;size:32;not null;uniqueIndex:ux_decisions_decision_id"`
	// FK to loans.id (numeric)
	LoanID    uint64    `gorm:"column:loan_id;not null;uniqueIndex:ux_decisions_loan"`
	AdminID   string    `gorm:"column:admin_id;size:32;not null"`
	Outcome   string    `gorm:"column:outcome;size:16;not null"`
	Note      string    `gorm:"column:note;type:text"`
	DecidedAt time.Time `gorm:"column:decided_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Decision) TableName() string { return "loan_decisions" }
