package loan

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"loandesk/internal/domain/decision"
	"loandesk/internal/domain/loan"
	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/uow"
	"loandesk/internal/domain/user"
	"loandesk/internal/validation"
	"loandesk/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct {
	repo     loan.Repository
	profiles profile.Repository
	uow      uow.UnitOfWork
	v        *validation.Validator
	events   EventPublisher
}

// NewUsecase wires the loan flows. events may be nil.
func NewUsecase(r loan.Repository, profiles profile.Repository, tx uow.UnitOfWork, v *validation.Validator, events EventPublisher) *Usecase {
	return &Usecase{repo: r, profiles: profiles, uow: tx, v: v, events: events}
}

// Create files an application for the acting user. Income and employment
// are copied from the owner's profile at submission time.
func (u *Usecase) Create(ctx context.Context, actor user.Actor, in CreateLoanInput) (*LoanDTO, error) {
	if err := u.v.Validate(in); err != nil {
		return nil, err
	}
	p, err := u.profiles.GetByOwnerID(ctx, actor.UserID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, profile.ErrIncomplete
	case err != nil:
		return nil, err
	case !p.Complete():
		return nil, profile.ErrIncomplete
	}

	now := time.Now().UTC()
	l := &loan.Loan{
		LoanID:           id.New(),
		OwnerID:          actor.UserID,
		Amount:           in.Amount.Round(2),
		Purpose:          strings.TrimSpace(in.Purpose),
		TermMonths:       in.TermMonths,
		MonthlyIncome:    p.MonthlyIncome,
		EmploymentStatus: string(p.EmploymentStatus),
		Status:           loan.StatusPending,
		StatusUpdatedAt:  now,
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return toDTO(l), nil
}

func (u *Usecase) ListMine(ctx context.Context, actor user.Actor) ([]LoanDTO, error) {
	rows, err := u.repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// Get returns the application to its owner or any admin. Other callers see
// ErrNotFound, as if the row did not exist.
func (u *Usecase) Get(ctx context.Context, actor user.Actor, loanID string) (*LoanDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	if l.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, loan.ErrNotFound
	}
	return toDTO(l), nil
}

func (u *Usecase) List(ctx context.Context, actor user.Actor, status string) ([]LoanDTO, error) {
	if !actor.IsAdmin() {
		return nil, loan.ErrForbidden
	}
	st := loan.Status(status)
	if st != "" && !st.Valid() {
		return nil, &validation.Error{Fields: []validation.FieldError{{Field: "status", Message: "must be one of pending approved rejected"}}}
	}
	rows, err := u.repo.List(ctx, st)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// Decide moves a pending application to approved or rejected. Admin only.
func (u *Usecase) Decide(ctx context.Context, actor user.Actor, loanID string, in DecideInput) (*DecisionDTO, error) {
	if !actor.IsAdmin() {
		return nil, loan.ErrForbidden
	}
	if err := u.v.Validate(in); err != nil {
		return nil, err
	}
	outcome := loan.Status(strings.ToLower(strings.TrimSpace(in.Outcome)))
	if !outcome.Outcome() {
		return nil, loan.ErrInvalidTransition
	}

	var (
		dto *DecisionDTO
		ev  loan.DecidedEvent
	)
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusPending {
			return loan.ErrAlreadyDecided
		}
		if _, err := r.Decisions.GetByLoanID(ctx, l.ID); err == nil {
			return loan.ErrAlreadyDecided
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		d := &decision.Decision{
			DecisionID: id.New(),
			LoanID:     l.ID,
			AdminID:    actor.UserID,
			Outcome:    string(outcome),
			Note:       strings.TrimSpace(in.Note),
			DecidedAt:  now,
		}
		if err := r.Decisions.Create(ctx, d); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return loan.ErrAlreadyDecided
			}
			return err
		}

		l.Status = outcome
		l.StatusUpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		dto = &DecisionDTO{
			DecisionID: d.DecisionID,
			LoanID:     l.LoanID,
			Status:     string(outcome),
			Note:       d.Note,
			DecidedBy:  d.AdminID,
			DecidedAt:  d.DecidedAt,
		}
		ev = loan.DecidedEvent{
			LoanID:     l.LoanID,
			OwnerID:    l.OwnerID,
			DecisionID: d.DecisionID,
			Outcome:    outcome,
			Note:       d.Note,
			DecidedBy:  d.AdminID,
			DecidedAt:  d.DecidedAt,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}

	if u.events != nil {
		if err := u.events.PublishLoanDecided(ctx, ev); err != nil {
			log.Printf("loan: publish decided event for %s: %v", ev.LoanID, err)
		}
	}
	return dto, nil
}

func toDTOs(rows []loan.Loan) []LoanDTO {
	out := make([]LoanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out
}
