package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"
)

// SystemProducer is the built-in report producer. It collects disk usage
// and rough folder sizes; it never reads file contents.
type SystemProducer struct {
	// HomeDir overrides the scanned home directory, for tests.
	HomeDir string
}

func NewSystemProducer() *SystemProducer { return &SystemProducer{} }

var scannedFolders = []string{"Downloads", "Documents", "Desktop", "Pictures"}

func (p *SystemProducer) Run(ctx context.Context, profile Profile) (*Report, error) {
	report := &Report{
		Transparency: TransparencyInfo{
			Collected: []string{
				"Folder sizes (Downloads, Documents, Desktop, Pictures)",
				"Disk usage statistics",
				"Process count",
			},
			NotCollected: []string{
				"File contents",
				"File names (default)",
				"File paths (default)",
				"Browser history",
			},
		},
		CreatedAt: time.Now().UTC(),
	}

	if profile == ProfilePing {
		report.HealthScore = 100
		report.OneLiner = "Agent is reachable."
		return report, nil
	}

	usage, err := disk.UsageWithContext(ctx, rootPath())
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	report.Storage.TotalBytes = usage.Total
	report.Storage.FreeBytes = usage.Free
	report.Storage.FreePercent = 100 - usage.UsedPercent
	report.DiskFreePercent = report.Storage.FreePercent

	if profile != ProfilePrivacy {
		report.Storage.Folders = p.scanFolders(ctx, profile)
	}

	if profile == ProfileFull || profile == ProfileDeep || profile == ProfilePrivacy {
		report.Privacy = p.collectPrivacy(ctx, report.Storage.Folders)
	}

	if profile == ProfileFull || profile == ProfileDeep {
		pids, err := process.PidsWithContext(ctx)
		if err == nil {
			report.Slowdown.HeavyProcessCount = len(pids)
		}
	}

	report.HealthScore = healthScore(report.Storage.FreePercent)
	report.OneLiner = oneLiner(report.HealthScore, report.Storage.FreePercent)
	report.Recommendations = recommendations(report.Storage.FreePercent)
	return report, nil
}

func (p *SystemProducer) homeDir() string {
	if p.HomeDir != "" {
		return p.HomeDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

func (p *SystemProducer) scanFolders(ctx context.Context, profile Profile) []FolderInfo {
	home := p.homeDir()
	if home == "" {
		return nil
	}
	names := scannedFolders
	if profile == ProfileDownloads {
		names = []string{"Downloads"}
	}
	infos := make([]FolderInfo, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		dir := filepath.Join(home, name)
		bytes, count, err := folderSize(ctx, dir)
		if err != nil {
			continue
		}
		infos = append(infos, FolderInfo{Name: name, Bytes: bytes, FileCount: count, Path: dir})
	}
	return infos
}

func (p *SystemProducer) collectPrivacy(ctx context.Context, folders []FolderInfo) PrivacySummary {
	var out PrivacySummary
	for _, f := range folders {
		if f.Name == "Downloads" {
			out.DownloadsFolderBytes = f.Bytes
		}
	}
	if tempBytes, _, err := folderSize(ctx, os.TempDir()); err == nil {
		out.TempFilesBytes = tempBytes
	}
	return out
}

// folderSize walks a directory summing regular-file sizes. Unreadable
// entries are skipped rather than failing the scan.
func folderSize(ctx context.Context, dir string) (int64, int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, 0, err
	}
	var bytes int64
	var count int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fs.SkipAll
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				bytes += info.Size()
				count++
			}
		}
		return nil
	})
	return bytes, count, err
}

func healthScore(freePercent float64) int {
	score := 100
	switch {
	case freePercent < 5:
		score -= 40
	case freePercent < 10:
		score -= 25
	case freePercent < 20:
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

func oneLiner(score int, freePercent float64) string {
	switch {
	case score >= 90:
		return "Your PC looks healthy."
	case score >= 70:
		return fmt.Sprintf("Mostly fine, but disk space is getting low (%.0f%% free).", freePercent)
	default:
		return fmt.Sprintf("Needs attention: only %.0f%% disk space free.", freePercent)
	}
}

func recommendations(freePercent float64) []string {
	var recs []string
	if freePercent < 20 {
		recs = append(recs, "Free up disk space by emptying Downloads and the trash.")
	}
	if freePercent < 5 {
		recs = append(recs, "Disk is nearly full; the system may become unstable.")
	}
	return recs
}

func rootPath() string {
	if os.PathSeparator == '\\' {
		return `C:\`
	}
	return "/"
}
