package gormrepo

import (
	"context"
	"errors"
	"testing"

	userDomain "loandesk/internal/domain/user"
	"loandesk/internal/testutil/dbtest"
	"loandesk/pkg/id"

	"gorm.io/gorm"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	a := &userDomain.Account{UserID: id.New(), Email: "ana@example.com", PasswordHash: "x"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	if err != nil || byEmail.UserID != a.UserID {
		t.Fatalf("GetByEmail = %+v, %v", byEmail, err)
	}
	byID, err := repo.GetByUserID(ctx, a.UserID)
	if err != nil || byID.Email != a.Email {
		t.Fatalf("GetByUserID = %+v, %v", byID, err)
	}

	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &userDomain.Account{UserID: id.New(), Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := repo.Create(ctx, &userDomain.Account{UserID: id.New(), Email: "dup@example.com"})
	if !errors.Is(err, userDomain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}
