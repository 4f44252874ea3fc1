package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loandesk/internal/usecase/profile"
	"loandesk/internal/validation"
)

type ProfileHandler struct{ uc *profile.Usecase }

func NewProfileHandler(uc *profile.Usecase) *ProfileHandler { return &ProfileHandler{uc: uc} }

// dates travel as YYYY-MM-DD
type saveProfileReq struct {
	FullName         string          `json:"full_name"`
	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	DateOfBirth      string          `json:"date_of_birth"`
	EmploymentStatus string          `json:"employment_status"`
	MonthlyIncome    decimal.Decimal `json:"monthly_income"`
}

type setAdminReq struct {
	IsAdmin bool `json:"is_admin"`
}

func (h *ProfileHandler) GetMine(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	return h.get(c, a.UserID)
}

func (h *ProfileHandler) Get(c echo.Context) error {
	return h.get(c, c.Param("owner_id"))
}

func (h *ProfileHandler) get(c echo.Context, ownerID string) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	dto, err := h.uc.Get(c.Request().Context(), a, ownerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ProfileHandler) SaveMine(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	return h.save(c, a.UserID)
}

// Save lets support staff correct another owner's profile.
func (h *ProfileHandler) Save(c echo.Context) error {
	return h.save(c, c.Param("owner_id"))
}

func (h *ProfileHandler) save(c echo.Context, ownerID string) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req saveProfileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	dob, err := profile.ParseDate(req.DateOfBirth)
	if err != nil {
		return fail(c, &validation.Error{Fields: []validation.FieldError{
			{Field: "DateOfBirth", Message: "must be a YYYY-MM-DD date"},
		}})
	}
	dto, err := h.uc.Save(c.Request().Context(), a, ownerID, profile.SaveProfileInput{
		FullName:         req.FullName,
		Address:          req.Address,
		Phone:            req.Phone,
		DateOfBirth:      dob,
		EmploymentStatus: req.EmploymentStatus,
		MonthlyIncome:    req.MonthlyIncome,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ProfileHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.uc.List(c.Request().Context(), a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ProfileHandler) SetAdmin(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req setAdminReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.uc.SetAdmin(c.Request().Context(), a, c.Param("owner_id"), req.IsAdmin); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
