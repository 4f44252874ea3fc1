package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"loandesk/internal/adapter/middleware"
	domain "loandesk/internal/domain/loan"
	"loandesk/internal/domain/user"
	"loandesk/internal/testutil/loanmock"
	"loandesk/internal/testutil/profilemock"
	"loandesk/internal/testutil/uowmock"
	uc "loandesk/internal/usecase/loan"
	"loandesk/internal/validation"
)

func newLoanHandler(repo *loanmock.Repo) *LoanHandler {
	return NewLoanHandler(uc.NewUsecase(repo, &profilemock.Repo{}, &uowmock.UoW{}, validation.New(), nil))
}

func loanCtx(method, target, body string, a *user.Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if a != nil {
		middleware.SetActor(c, *a)
	}
	return c, rec
}

func TestLoanHandler_NoActor(t *testing.T) {
	h := newLoanHandler(&loanmock.Repo{})
	c, rec := loanCtx(http.MethodGet, "/loans", "", nil)
	if err := h.ListMine(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoanHandler_CreateBindError(t *testing.T) {
	h := newLoanHandler(&loanmock.Repo{})
	a := user.Actor{UserID: strings.Repeat("a", 32), Role: user.RoleUser}
	c, rec := loanCtx(http.MethodPost, "/loans", `{"amount":`, &a)
	if err := h.CreateLoan(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLoanHandler_DecideMissingPathParam(t *testing.T) {
	h := newLoanHandler(&loanmock.Repo{})
	a := user.Actor{UserID: strings.Repeat("f", 32), Role: user.RoleAdmin}
	c, rec := loanCtx(http.MethodPost, "/admin/loans//decision", `{"status":"approved"}`, &a)
	if err := h.Decide(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "missing loan_id path param" {
		t.Fatalf("error = %q", er.Error)
	}
}

func TestLoanHandler_GetForeignIsNotFound(t *testing.T) {
	repo := &loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.Loan, error) {
			return &domain.Loan{LoanID: loanID, OwnerID: strings.Repeat("b", 32), Status: domain.StatusPending}, nil
		},
	}
	h := newLoanHandler(repo)
	a := user.Actor{UserID: strings.Repeat("a", 32), Role: user.RoleUser}
	c, rec := loanCtx(http.MethodGet, "/loans/x", "", &a)
	c.SetParamNames("loan_id")
	c.SetParamValues(strings.Repeat("1", 32))
	if err := h.GetLoan(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestLoanHandler_GetStoreError(t *testing.T) {
	repo := &loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.Loan, error) {
			return nil, gorm.ErrInvalidDB
		},
	}
	h := newLoanHandler(repo)
	a := user.Actor{UserID: strings.Repeat("a", 32), Role: user.RoleUser}
	c, rec := loanCtx(http.MethodGet, "/loans/x", "", &a)
	c.SetParamNames("loan_id")
	c.SetParamValues(strings.Repeat("1", 32))
	if err := h.GetLoan(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
