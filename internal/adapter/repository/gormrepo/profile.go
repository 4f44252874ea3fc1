package gormrepo

import (
	"context"

	profileDomain "loandesk/internal/domain/profile"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

func (r *ProfileRepository) GetByOwnerID(ctx context.Context, ownerID string) (*profileDomain.Profile, error) {
	var out profileDomain.Profile
	res := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&out)
	return &out, res.Error
}

// Upsert inserts or replaces the owner's row. is_admin is left to SetAdmin.
func (r *ProfileRepository) Upsert(ctx context.Context, p *profileDomain.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name", "address", "phone", "date_of_birth",
				"employment_status", "monthly_income", "updated_at",
			}),
		}).
		Omit("is_admin").
		Create(p).Error
}

func (r *ProfileRepository) SetAdmin(ctx context.Context, ownerID string, admin bool) error {
	res := r.db.WithContext(ctx).
		Model(&profileDomain.Profile{}).
		Where("owner_id = ?", ownerID).
		Update("is_admin", admin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]profileDomain.Profile, error) {
	var out []profileDomain.Profile
	res := r.db.WithContext(ctx).Order("full_name ASC, id ASC").Find(&out)
	return out, res.Error
}
