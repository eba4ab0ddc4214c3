// Package analyzer produces the health report a command asks for. The
// executor only depends on the Producer interface; the built-in producer
// keeps collection deliberately shallow.
package analyzer

import (
	"context"
	"time"
)

// Profile selects analysis depth and scope.
type Profile string

const (
	ProfileFull      Profile = "full"
	ProfileDeep      Profile = "deep"
	ProfileStorage   Profile = "storage"
	ProfilePrivacy   Profile = "privacy"
	ProfileDownloads Profile = "downloads"
	ProfilePing      Profile = "ping"
)

// ProfileForCommand maps a server command type to a profile. Unrecognized
// types fall back to the broadest profile: commands are server-issued and
// trusted, so availability wins over strictness.
func ProfileForCommand(commandType string) Profile {
	switch commandType {
	case "RUN_FULL":
		return ProfileFull
	case "RUN_DEEP":
		return ProfileDeep
	case "RUN_STORAGE_ONLY":
		return ProfileStorage
	case "RUN_PRIVACY_ONLY":
		return ProfilePrivacy
	case "RUN_DOWNLOADS_TOP":
		return ProfileDownloads
	case "PING":
		return ProfilePing
	default:
		return ProfileFull
	}
}

// Report is the analysis result shipped to the server after sanitization.
type Report struct {
	HealthScore      int              `json:"healthScore"`
	DiskFreePercent  float64          `json:"diskFreePercent"`
	StartupAppsCount int              `json:"startupAppsCount"`
	OneLiner         string           `json:"oneLiner"`
	Storage          StorageSummary   `json:"storage"`
	Slowdown         SlowdownSummary  `json:"slowdown"`
	Privacy          PrivacySummary   `json:"privacy"`
	Recommendations  []string         `json:"recommendations"`
	Transparency     TransparencyInfo `json:"transparency"`
	CreatedAt        time.Time        `json:"createdAt"`
}

type StorageSummary struct {
	Folders     []FolderInfo `json:"folders"`
	TotalBytes  uint64       `json:"totalBytes"`
	FreeBytes   uint64       `json:"freeBytes"`
	FreePercent float64      `json:"freePercent"`
}

// FolderInfo describes one scanned folder. Path stays on the device
// unless an elevated sanitization policy ever asks for it.
type FolderInfo struct {
	Name      string `json:"name"`
	Bytes     int64  `json:"bytes"`
	FileCount int    `json:"fileCount"`
	Path      string `json:"path,omitempty"`
}

type SlowdownSummary struct {
	StartupAppsCount  int      `json:"startupAppsCount"`
	HeavyProcessCount int      `json:"heavyProcessCount"`
	Reasons           []string `json:"reasons"`
}

type PrivacySummary struct {
	BrowserCacheSizeBytes int64 `json:"browserCacheSizeBytes"`
	DownloadsFolderBytes  int64 `json:"downloadsFolderBytes"`
	TempFilesBytes        int64 `json:"tempFilesBytes"`
}

type TransparencyInfo struct {
	Collected    []string `json:"collected"`
	NotCollected []string `json:"notCollected"`
}

// Producer turns a profile into a report. The daemon wires the built-in
// system producer; tests substitute their own.
type Producer interface {
	Run(ctx context.Context, profile Profile) (*Report, error)
}
