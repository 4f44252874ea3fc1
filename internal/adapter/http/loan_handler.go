package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loandesk/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req loan.CreateLoanInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	dto, err := h.uc.Create(c.Request().Context(), a, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ListMine(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.uc.ListMine(c.Request().Context(), a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	dto, err := h.uc.Get(c.Request().Context(), a, c.Param("loan_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// List is the admin queue, optionally filtered by ?status=.
func (h *LoanHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.uc.List(c.Request().Context(), a, c.QueryParam("status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *LoanHandler) Decide(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req loan.DecideInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	dto, err := h.uc.Decide(c.Request().Context(), a, loanID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}
