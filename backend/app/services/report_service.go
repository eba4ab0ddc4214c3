package services

import (
	"encoding/json"
	"errors"

	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"
)

var ErrReportTooLarge = errors.New("report payload too large")

type ReportService struct {
	reports  *repo.ReportRepository
	commands *CommandService
	maxBytes int64
}

func NewReportService(reports *repo.ReportRepository, commands *CommandService, maxBytes int64) *ReportService {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &ReportService{reports: reports, commands: commands, maxBytes: maxBytes}
}

// reportSummary is the handful of fields lifted out of the raw report
// for listing without parsing the whole blob.
type reportSummary struct {
	HealthScore      int     `json:"healthScore"`
	DiskFreePercent  float64 `json:"diskFreePercent"`
	StartupAppsCount int     `json:"startupAppsCount"`
	OneLiner         string  `json:"oneLiner"`
}

// Store persists an uploaded report and, when it answers a command,
// closes that command as succeeded.
func (s *ReportService) Store(deviceID, commandID string, raw json.RawMessage) (*models.Report, error) {
	if int64(len(raw)) > s.maxBytes {
		return nil, ErrReportTooLarge
	}
	var summary reportSummary
	_ = json.Unmarshal(raw, &summary)

	report := &models.Report{
		ID:               GenerateID("rpt"),
		DeviceID:         deviceID,
		CommandID:        commandID,
		HealthScore:      summary.HealthScore,
		DiskFreePercent:  summary.DiskFreePercent,
		StartupAppsCount: summary.StartupAppsCount,
		OneLiner:         summary.OneLiner,
		RawReportJSON:    string(raw),
	}
	if err := s.reports.Create(report); err != nil {
		return nil, err
	}
	if commandID != "" {
		if err := s.commands.CloseWithReport(deviceID, commandID, report.ID); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// ListByDevice returns the newest reports for a device.
func (s *ReportService) ListByDevice(deviceID string, limit int) ([]models.Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.reports.ListByDevice(deviceID, limit)
}
