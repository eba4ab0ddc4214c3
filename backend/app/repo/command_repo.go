package repo

import (
	"errors"
	"time"

	"pc-insight/backend/app/models"

	"gorm.io/gorm"
)

type CommandRepository struct{ db *gorm.DB }

func NewCommandRepository(db *gorm.DB) *CommandRepository { return &CommandRepository{db: db} }

func (r *CommandRepository) Create(c *models.Command) error { return r.db.Create(c).Error }

func (r *CommandRepository) FindForDevice(id, deviceID string) (*models.Command, error) {
	var c models.Command
	if err := r.db.Where("id = ? AND device_id = ?", id, deviceID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// PopNext claims the oldest queued, unexpired command for a device and
// flips it to running inside one transaction. Returns (nil, nil) when the
// queue is empty.
func (r *CommandRepository) PopNext(deviceID string, now time.Time) (*models.Command, error) {
	var claimed *models.Command
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var c models.Command
		err := tx.Where("device_id = ? AND status = ?", deviceID, models.CommandQueued).
			Where("expires_at IS NULL OR expires_at > ?", now).
			Order("created_at ASC").
			First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		updates := map[string]any{
			"status":     models.CommandRunning,
			"started_at": now,
			"progress":   0,
			"message":    "Starting...",
		}
		if err := tx.Model(&models.Command{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			return err
		}
		claimed = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *CommandRepository) UpdateStatus(id, status string, progress int, message string, finishedAt *time.Time) error {
	return r.db.Model(&models.Command{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"progress":    progress,
			"message":     message,
			"finished_at": finishedAt,
		}).Error
}

// MarkSucceeded closes the command after its report arrived.
func (r *CommandRepository) MarkSucceeded(id, deviceID, reportID string, at time.Time) error {
	return r.db.Model(&models.Command{}).
		Where("id = ? AND device_id = ?", id, deviceID).
		Updates(map[string]any{
			"status":      models.CommandSucceeded,
			"progress":    100,
			"message":     "Report uploaded",
			"finished_at": at,
			"report_id":   reportID,
		}).Error
}
