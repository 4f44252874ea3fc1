package user

import "context"

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByUserID(ctx context.Context, userID string) (*Account, error)
}
