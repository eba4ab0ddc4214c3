package repo

import (
	"time"

	"pc-insight/backend/app/models"

	"gorm.io/gorm"
)

type EnrollTokenRepository struct{ db *gorm.DB }

func NewEnrollTokenRepository(db *gorm.DB) *EnrollTokenRepository {
	return &EnrollTokenRepository{db: db}
}

func (r *EnrollTokenRepository) Create(t *models.EnrollToken) error { return r.db.Create(t).Error }

func (r *EnrollTokenRepository) FindByHash(hash string) (*models.EnrollToken, error) {
	var t models.EnrollToken
	if err := r.db.Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed consumes the token. The used_at IS NULL guard keeps a token
// single-use even under concurrent enroll attempts; the caller checks the
// affected-row count.
func (r *EnrollTokenRepository) MarkUsed(id, deviceID string, at time.Time) (int64, error) {
	res := r.db.Model(&models.EnrollToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Updates(map[string]any{"used_at": at, "used_device_id": deviceID})
	return res.RowsAffected, res.Error
}
