package repo

import (
	"time"

	"pc-insight/backend/app/models"

	"gorm.io/gorm"
)

type DeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) *DeviceRepository { return &DeviceRepository{db: db} }

func (r *DeviceRepository) Create(d *models.Device) error { return r.db.Create(d).Error }

func (r *DeviceRepository) FindByID(id string) (*models.Device, error) {
	var d models.Device
	if err := r.db.Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) TouchLastSeen(id string, at time.Time) error {
	return r.db.Model(&models.Device{}).Where("id = ?", id).Update("last_seen_at", at).Error
}

func (r *DeviceRepository) ListAll() ([]models.Device, error) {
	var devices []models.Device
	if err := r.db.Order("created_at ASC").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}
