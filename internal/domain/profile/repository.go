package profile

import "context"

type Repository interface {
	GetByOwnerID(ctx context.Context, ownerID string) (*Profile, error)
	// Upsert keyed by owner_id. Never touches is_admin.
	Upsert(ctx context.Context, p *Profile) error
	SetAdmin(ctx context.Context, ownerID string, admin bool) error
	List(ctx context.Context) ([]Profile, error)
}
