// Package uow binds the loan and decision stores to one transaction so a
// decision and its status change commit together.
package uow

import (
	"context"

	"loandesk/internal/domain/decision"
	"loandesk/internal/domain/loan"
)

// Repos are the stores bound to the running transaction.
type Repos struct {
	Loans     loan.Repository
	Decisions decision.Repository
}

type UnitOfWork interface {
	// WithinLoanTx locks loanID for update before fn runs. A missing loan
	// surfaces as gorm.ErrRecordNotFound.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
