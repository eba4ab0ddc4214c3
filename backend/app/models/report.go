package models

import "time"

// Report stores an uploaded agent report: a few summary columns for
// listing plus the raw sanitized JSON.
type Report struct {
	ID               string `gorm:"primaryKey;size:64"`
	DeviceID         string `gorm:"size:64;index"`
	CommandID        string `gorm:"size:64;index"`
	HealthScore      int
	DiskFreePercent  float64
	StartupAppsCount int
	OneLiner         string `gorm:"size:512"`
	RawReportJSON    string `gorm:"type:longtext"`
	CreatedAt        time.Time
}
