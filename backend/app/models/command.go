package models

import "time"

// Command statuses as reported through the agent lifecycle.
const (
	CommandQueued    = "queued"
	CommandRunning   = "running"
	CommandSucceeded = "succeeded"
	CommandFailed    = "failed"
)

// Command is one unit of remote work queued for a device (durable queue;
// the agent pulls it via the next-command endpoint).
type Command struct {
	ID         string `gorm:"primaryKey;size:64"`
	DeviceID   string `gorm:"size:64;index"`
	Type       string `gorm:"size:64"`
	ParamsJSON string `gorm:"type:longtext"`
	Status     string `gorm:"size:32;index"`
	Progress   int
	Message    string `gorm:"size:512"`
	ReportID   string `gorm:"size:64"`
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	ExpiresAt  *time.Time
}
