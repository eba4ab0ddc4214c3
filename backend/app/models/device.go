package models

import "time"

type Device struct {
	ID              string `gorm:"primaryKey;size:64"`
	UserID          uint   `gorm:"index"`
	Name            string `gorm:"size:255"`
	Platform        string `gorm:"size:64"`
	Arch            string `gorm:"size:64"`
	FingerprintHash string `gorm:"size:64"`
	AgentVersion    string `gorm:"size:32"`
	CreatedAt       time.Time
	LastSeenAt      time.Time
}
