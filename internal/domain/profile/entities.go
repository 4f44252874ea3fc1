package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("profile not found")
	ErrForbidden = errors.New("profile belongs to another user")
	// The owner has not saved a profile with a name yet.
	ErrIncomplete = errors.New("profile incomplete")
)

type EmploymentStatus string

const (
	Employed     EmploymentStatus = "employed"
	SelfEmployed EmploymentStatus = "self-employed"
	Unemployed   EmploymentStatus = "unemployed"
	Retired      EmploymentStatus = "retired"
)

var EmploymentStatuses = []EmploymentStatus{Employed, SelfEmployed, Unemployed, Retired}

func (s EmploymentStatus) Valid() bool {
	for _, v := range EmploymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Table: profiles. Exactly one row per owner.
type Profile struct {
	ID               uint64           `gorm:"primaryKey;column:id" json:"-"`
	OwnerID          string           `gorm:"size:32;uniqueIndex:ux_profiles_owner" json:"owner_id"`
	FullName         string           `gorm:"size:255" json:"full_name"`
	Address          string           `gorm:"type:text" json:"address"`
	Phone            string           `gorm:"size:32" json:"phone"`
	DateOfBirth      time.Time        `gorm:"type:date" json:"date_of_birth"`
	EmploymentStatus EmploymentStatus `gorm:"size:16" json:"employment_status"`
	MonthlyIncome    decimal.Decimal  `gorm:"type:decimal(18,2)" json:"monthly_income"`
	IsAdmin          bool             `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Complete reports whether the profile is usable for chat and loan applications.
func (p *Profile) Complete() bool {
	return p != nil && strings.TrimSpace(p.FullName) != ""
}
