package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("loan application not found")
	ErrInvalidTransition = errors.New("loan application is not pending")
	ErrAlreadyDecided    = errors.New("loan application already decided")
	ErrForbidden         = errors.New("loan application belongs to another user")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Outcome reports whether s is a terminal decision an admin may apply.
func (s Status) Outcome() bool { return s == StatusApproved || s == StatusRejected }

type Loan struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	OwnerID          string          `gorm:"size:32;index:idx_loans_owner" json:"owner_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	Purpose          string          `gorm:"type:text" json:"purpose"`
	TermMonths       int             `json:"term_months"`
	MonthlyIncome    decimal.Decimal `gorm:"type:decimal(18,2)" json:"monthly_income"`
	EmploymentStatus string          `gorm:"size:16" json:"employment_status"`
	Status           Status          `gorm:"size:16;index;default:'pending'" json:"status"`
	StatusUpdatedAt  time.Time       `json:"status_updated_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }
