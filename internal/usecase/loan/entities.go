package loan

import (
	"context"
	"time"

	"loandesk/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	Amount     decimal.Decimal `json:"amount" validate:"dec2,gt=0"`
	Purpose    string          `json:"purpose" validate:"trimmin=3"`
	TermMonths int             `json:"term_months" validate:"gte=1,lte=360"`
}

type DecideInput struct {
	Outcome string `json:"status"`
	Note    string `json:"note" validate:"lte=1000"`
}

type LoanDTO struct {
	LoanID           string          `json:"loan_id"`
	OwnerID          string          `json:"owner_id"`
	Amount           decimal.Decimal `json:"amount"`
	Purpose          string          `json:"purpose"`
	TermMonths       int             `json:"term_months"`
	MonthlyIncome    decimal.Decimal `json:"monthly_income"`
	EmploymentStatus string          `json:"employment_status"`
	Status           string          `json:"status"`
	StatusUpdatedAt  time.Time       `json:"status_updated_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

type DecisionDTO struct {
	DecisionID string    `json:"decision_id"`
	LoanID     string    `json:"loan_id"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	DecidedBy  string    `json:"decided_by"`
	DecidedAt  time.Time `json:"decided_at"`
}

// EventPublisher receives decisions after their transaction commits.
type EventPublisher interface {
	PublishLoanDecided(ctx context.Context, ev loan.DecidedEvent) error
}

func toDTO(l *loan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:           l.LoanID,
		OwnerID:          l.OwnerID,
		Amount:           l.Amount,
		Purpose:          l.Purpose,
		TermMonths:       l.TermMonths,
		MonthlyIncome:    l.MonthlyIncome,
		EmploymentStatus: l.EmploymentStatus,
		Status:           string(l.Status),
		StatusUpdatedAt:  l.StatusUpdatedAt,
		CreatedAt:        l.CreatedAt,
	}
}
