package auth

import (
	"context"
	"errors"
	"strings"

	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/user"
	"loandesk/internal/validation"
	"loandesk/pkg/id"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Usecase struct {
	users    user.Repository
	profiles profile.Repository
	tokens   *Tokens
	v        *validation.Validator
	cost     int
}

func NewUsecase(users user.Repository, profiles profile.Repository, tokens *Tokens, v *validation.Validator, bcryptCost int) *Usecase {
	return &Usecase{users: users, profiles: profiles, tokens: tokens, v: v, cost: bcryptCost}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*AccountDTO, error) {
	in.Email = normalizeEmail(in.Email)
	if err := u.v.Validate(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cost)
	if err != nil {
		return nil, err
	}
	a := &user.Account{
		UserID:       id.New(),
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := u.users.Create(ctx, a); err != nil {
		return nil, err
	}
	return &AccountDTO{UserID: a.UserID, Email: a.Email, CreatedAt: a.CreatedAt}, nil
}

// Login verifies the credentials and issues an access token. The role claim
// comes from the profile's admin flag at issue time.
func (u *Usecase) Login(ctx context.Context, in LoginInput) (*TokenDTO, error) {
	in.Email = normalizeEmail(in.Email)
	if err := u.v.Validate(in); err != nil {
		return nil, err
	}
	a, err := u.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(in.Password)) != nil {
		return nil, user.ErrInvalidCredentials
	}

	actor, err := u.resolve(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	tok, err := u.tokens.Issue(actor)
	if err != nil {
		return nil, err
	}
	return &TokenDTO{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		ExpiresAt:   tok.ExpiresAt,
		UserID:      actor.UserID,
		Role:        string(actor.Role),
	}, nil
}

func (u *Usecase) Me(ctx context.Context, actor user.Actor) (*MeDTO, error) {
	a, err := u.users.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	resolved, complete, err := u.lookup(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	return &MeDTO{UserID: a.UserID, Email: a.Email, Role: string(resolved.Role), ProfileComplete: complete}, nil
}

// Actor resolves the current role of userID from its profile.
func (u *Usecase) Actor(ctx context.Context, userID string) (user.Actor, error) {
	return u.resolve(ctx, userID)
}

func (u *Usecase) resolve(ctx context.Context, userID string) (user.Actor, error) {
	a, _, err := u.lookup(ctx, userID)
	return a, err
}

func (u *Usecase) lookup(ctx context.Context, userID string) (user.Actor, bool, error) {
	actor := user.Actor{UserID: userID, Role: user.RoleUser}
	p, err := u.profiles.GetByOwnerID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return actor, false, nil
	case err != nil:
		return user.Actor{}, false, err
	}
	if p.IsAdmin {
		actor.Role = user.RoleAdmin
	}
	return actor, p.Complete(), nil
}
