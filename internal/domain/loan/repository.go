package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Locks the row until the surrounding transaction ends
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Loan, error)
	// Empty status lists everything
	List(ctx context.Context, status Status) ([]Loan, error)
	Save(ctx context.Context, l *Loan) error
}
