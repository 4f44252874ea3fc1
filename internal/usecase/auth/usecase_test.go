package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/user"
	"loandesk/internal/testutil/profilemock"
	"loandesk/internal/testutil/usermock"
	"loandesk/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const uid = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func newUC(users *usermock.Repo, profiles *profilemock.Repo) *Usecase {
	return NewUsecase(users, profiles, NewTokens("test-secret", time.Hour), validation.New(), bcrypt.MinCost)
}

func TestRegister_HashesAndNormalizes(t *testing.T) {
	var stored *user.Account
	uc := newUC(&usermock.Repo{
		CreateFn: func(_ context.Context, a *user.Account) error {
			stored = a
			return nil
		},
	}, &profilemock.Repo{})

	dto, err := uc.Register(context.Background(), RegisterInput{Email: "  Ana@Example.COM ", Password: "longenough"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if dto.Email != "ana@example.com" || len(dto.UserID) != 32 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if stored.PasswordHash == "longenough" {
		t.Fatalf("password stored in clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")) != nil {
		t.Fatalf("hash does not match password")
	}
}

func TestRegister_Validation(t *testing.T) {
	uc := newUC(&usermock.Repo{
		CreateFn: func(context.Context, *user.Account) error {
			t.Fatalf("Create must not be called for invalid input")
			return nil
		},
	}, &profilemock.Repo{})

	for _, in := range []RegisterInput{
		{Email: "not-an-email", Password: "longenough"},
		{Email: "a@b.co", Password: "short"},
		{},
	} {
		if _, err := uc.Register(context.Background(), in); !errors.Is(err, validation.ErrInvalid) {
			t.Fatalf("Register(%+v) err = %v, want ErrInvalid", in, err)
		}
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	uc := newUC(&usermock.Repo{
		CreateFn: func(context.Context, *user.Account) error { return user.ErrEmailTaken },
	}, &profilemock.Repo{})
	if _, err := uc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "longenough"}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("err = %v", err)
	}
}

func TestLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	account := &user.Account{UserID: uid, Email: "ana@example.com", PasswordHash: string(hash)}
	users := &usermock.Repo{
		GetByEmailFn: func(_ context.Context, email string) (*user.Account, error) {
			if email != account.Email {
				return nil, gorm.ErrRecordNotFound
			}
			return account, nil
		},
	}

	tests := []struct {
		name     string
		in       LoginInput
		profile  func(context.Context, string) (*profile.Profile, error)
		wantErr  error
		wantRole user.Role
	}{
		{
			name:     "no profile yet is a plain user",
			in:       LoginInput{Email: "ANA@example.com", Password: "longenough"},
			profile:  func(context.Context, string) (*profile.Profile, error) { return nil, gorm.ErrRecordNotFound },
			wantRole: user.RoleUser,
		},
		{
			name: "admin flag becomes the admin role",
			in:   LoginInput{Email: "ana@example.com", Password: "longenough"},
			profile: func(context.Context, string) (*profile.Profile, error) {
				return &profile.Profile{OwnerID: uid, FullName: "Ana", IsAdmin: true}, nil
			},
			wantRole: user.RoleAdmin,
		},
		{
			name:    "wrong password",
			in:      LoginInput{Email: "ana@example.com", Password: "nope-nope"},
			wantErr: user.ErrInvalidCredentials,
		},
		{
			name:    "unknown email",
			in:      LoginInput{Email: "bob@example.com", Password: "longenough"},
			wantErr: user.ErrInvalidCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newUC(users, &profilemock.Repo{GetByOwnerIDFn: tt.profile})
			dto, err := uc.Login(context.Background(), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if dto.Role != string(tt.wantRole) || dto.TokenType != "Bearer" {
				t.Fatalf("unexpected dto: %+v", dto)
			}
			actor, err := uc.tokens.Parse(dto.AccessToken)
			if err != nil {
				t.Fatalf("Parse issued token: %v", err)
			}
			if actor.UserID != uid || actor.Role != tt.wantRole {
				t.Fatalf("actor = %+v", actor)
			}
		})
	}
}

func TestMe_ReportsProfileCompleteness(t *testing.T) {
	uc := newUC(&usermock.Repo{
		GetByUserIDFn: func(context.Context, string) (*user.Account, error) {
			return &user.Account{UserID: uid, Email: "ana@example.com"}, nil
		},
	}, &profilemock.Repo{
		GetByOwnerIDFn: func(context.Context, string) (*profile.Profile, error) {
			return &profile.Profile{OwnerID: uid, FullName: "   "}, nil
		},
	})
	me, err := uc.Me(context.Background(), user.Actor{UserID: uid})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ProfileComplete {
		t.Fatalf("blank name must not count as complete")
	}
}

func TestTokens_RejectsTamperedAndExpired(t *testing.T) {
	issuer := NewTokens("secret-a", time.Minute)
	tok, err := issuer.Issue(user.Actor{UserID: uid, Role: user.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewTokens("secret-b", time.Minute).Parse(tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret accepted: %v", err)
	}

	later := NewTokens("secret-a", time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := later.Parse(tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
	if _, err := issuer.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage accepted: %v", err)
	}
}
