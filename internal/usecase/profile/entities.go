package profile

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerRef names a profile by its owner's user id.
type OwnerRef struct {
	OwnerID string `validate:"hex32"`
}

// SaveProfileInput is validated in full before any write.
type SaveProfileInput struct {
	FullName         string          `json:"full_name" validate:"trimmin=2"`
	Address          string          `json:"address" validate:"trimmin=5"`
	Phone            string          `json:"phone" validate:"trimmin=10"`
	DateOfBirth      time.Time       `json:"date_of_birth" validate:"adult"`
	EmploymentStatus string          `json:"employment_status" validate:"employment"`
	MonthlyIncome    decimal.Decimal `json:"monthly_income" validate:"dec2,gt=0"`
}

type ProfileDTO struct {
	OwnerID          string          `json:"owner_id"`
	FullName         string          `json:"full_name"`
	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	DateOfBirth      string          `json:"date_of_birth"`
	EmploymentStatus string          `json:"employment_status"`
	MonthlyIncome    decimal.Decimal `json:"monthly_income"`
	IsAdmin          bool            `json:"is_admin"`
	Complete         bool            `json:"complete"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
