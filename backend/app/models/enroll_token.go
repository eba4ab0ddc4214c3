package models

import "time"

// EnrollToken is a one-time credential exchanged for a device token
// during linking. Only the hash is stored.
type EnrollToken struct {
	ID           string `gorm:"primaryKey;size:64"`
	UserID       uint   `gorm:"index"`
	TokenHash    string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt    time.Time
	ExpiresAt    time.Time
	UsedAt       *time.Time
	UsedDeviceID string `gorm:"size:64"`
}
