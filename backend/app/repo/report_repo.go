package repo

import (
	"pc-insight/backend/app/models"

	"gorm.io/gorm"
)

type ReportRepository struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) *ReportRepository { return &ReportRepository{db: db} }

func (r *ReportRepository) Create(rep *models.Report) error { return r.db.Create(rep).Error }

func (r *ReportRepository) ListByDevice(deviceID string, limit int) ([]models.Report, error) {
	var reports []models.Report
	q := r.db.Where("device_id = ?", deviceID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
