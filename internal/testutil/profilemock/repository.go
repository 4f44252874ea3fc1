package profilemock

import (
	"context"

	domain "loandesk/internal/domain/profile"
)

var _ domain.Repository = (*Repo)(nil)

type Repo struct {
	GetByOwnerIDFn func(ctx context.Context, ownerID string) (*domain.Profile, error)
	UpsertFn       func(ctx context.Context, p *domain.Profile) error
	SetAdminFn     func(ctx context.Context, ownerID string, admin bool) error
	ListFn         func(ctx context.Context) ([]domain.Profile, error)
}

func (m *Repo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Profile, error) {
	if m.GetByOwnerIDFn != nil {
		return m.GetByOwnerIDFn(ctx, ownerID)
	}
	return nil, context.Canceled
}

func (m *Repo) Upsert(ctx context.Context, p *domain.Profile) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, p)
	}
	return nil
}

func (m *Repo) SetAdmin(ctx context.Context, ownerID string, admin bool) error {
	if m.SetAdminFn != nil {
		return m.SetAdminFn(ctx, ownerID, admin)
	}
	return nil
}

func (m *Repo) List(ctx context.Context) ([]domain.Profile, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}
