package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/user"
	"loandesk/internal/validation"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Usecase struct {
	repo profile.Repository
	v    *validation.Validator
}

func NewUsecase(r profile.Repository, v *validation.Validator) *Usecase {
	return &Usecase{repo: r, v: v}
}

// owner-only with admin override
func authorize(actor user.Actor, ownerID string) error {
	if actor.UserID == ownerID || actor.IsAdmin() {
		return nil
	}
	return profile.ErrForbidden
}

func toDTO(p *profile.Profile) *ProfileDTO {
	dto := &ProfileDTO{
		OwnerID:          p.OwnerID,
		FullName:         p.FullName,
		Address:          p.Address,
		Phone:            p.Phone,
		EmploymentStatus: string(p.EmploymentStatus),
		MonthlyIncome:    p.MonthlyIncome,
		IsAdmin:          p.IsAdmin,
		Complete:         p.Complete(),
		UpdatedAt:        p.UpdatedAt,
	}
	if !p.DateOfBirth.IsZero() {
		dto.DateOfBirth = p.DateOfBirth.Format(dateLayout)
	}
	return dto
}

func (u *Usecase) Get(ctx context.Context, actor user.Actor, ownerID string) (*ProfileDTO, error) {
	if err := authorize(actor, ownerID); err != nil {
		return nil, err
	}
	p, err := u.repo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return toDTO(p), nil
}

// Save validates in and upserts the owner's profile.
func (u *Usecase) Save(ctx context.Context, actor user.Actor, ownerID string, in SaveProfileInput) (*ProfileDTO, error) {
	if err := authorize(actor, ownerID); err != nil {
		return nil, err
	}
	if err := u.v.Validate(OwnerRef{OwnerID: ownerID}); err != nil {
		return nil, err
	}
	if err := u.v.Validate(in); err != nil {
		return nil, err
	}

	dob := in.DateOfBirth.UTC()
	p := &profile.Profile{
		OwnerID:          ownerID,
		FullName:         strings.TrimSpace(in.FullName),
		Address:          strings.TrimSpace(in.Address),
		Phone:            strings.TrimSpace(in.Phone),
		DateOfBirth:      time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC),
		EmploymentStatus: profile.EmploymentStatus(in.EmploymentStatus),
		MonthlyIncome:    in.MonthlyIncome.Round(2),
	}
	if err := u.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	// re-read so the admin flag and timestamps reflect the stored row
	saved, err := u.repo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toDTO(saved), nil
}

func (u *Usecase) List(ctx context.Context, actor user.Actor) ([]ProfileDTO, error) {
	if !actor.IsAdmin() {
		return nil, profile.ErrForbidden
	}
	rows, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

func (u *Usecase) SetAdmin(ctx context.Context, actor user.Actor, ownerID string, admin bool) error {
	if !actor.IsAdmin() {
		return profile.ErrForbidden
	}
	if err := u.v.Validate(OwnerRef{OwnerID: ownerID}); err != nil {
		return err
	}
	err := u.repo.SetAdmin(ctx, ownerID, admin)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profile.ErrNotFound
	}
	return err
}

// GrantAdmin flags ownerID as an admin without an acting identity. Used to
// bootstrap the first administrator from the command line.
func (u *Usecase) GrantAdmin(ctx context.Context, ownerID string) error {
	return u.SetAdmin(ctx, user.Actor{Role: user.RoleAdmin}, ownerID, true)
}

// ParseDate parses a YYYY-MM-DD date of birth.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}
