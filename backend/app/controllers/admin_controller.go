package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"pc-insight/backend/app/dto"
	"pc-insight/backend/app/middleware"
	"pc-insight/backend/app/services"
)

type AdminController struct {
	Tokens   *services.TokenService
	Commands *services.CommandService
	Devices  *services.DeviceService
	Reports  *services.ReportService
}

func NewAdminController(tokens *services.TokenService, commands *services.CommandService, devices *services.DeviceService, reports *services.ReportService) *AdminController {
	return &AdminController{Tokens: tokens, Commands: commands, Devices: devices, Reports: reports}
}

// MintEnrollToken issues a one-time enrollment token for device linking.
func (c *AdminController) MintEnrollToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	plaintext, record, err := c.Tokens.Mint(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot mint token")
		return
	}
	writeJSON(w, http.StatusOK, dto.EnrollTokenResponse{Token: plaintext, ExpiresAt: record.ExpiresAt})
}

// QueueCommand places a command on a device's queue.
func (c *AdminController) QueueCommand(w http.ResponseWriter, r *http.Request) {
	var req dto.QueueCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "device_id and type are required")
		return
	}
	if _, err := c.Devices.Find(req.DeviceID); err != nil {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}
	cmd, err := c.Commands.Queue(req.DeviceID, req.Type, req.Params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot queue command")
		return
	}
	writeJSON(w, http.StatusAccepted, dto.QueueCommandResponse{CommandID: cmd.ID, Status: cmd.Status})
}

// ListDevices returns enrolled devices for the dashboard collaborator.
func (c *AdminController) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := c.Devices.ListAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot list devices")
		return
	}
	type deviceRow struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Platform     string `json:"platform"`
		Arch         string `json:"arch"`
		AgentVersion string `json:"agent_version"`
		LastSeenAt   int64  `json:"last_seen_at"`
	}
	out := make([]deviceRow, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceRow{
			ID:           d.ID,
			Name:         d.Name,
			Platform:     d.Platform,
			Arch:         d.Arch,
			AgentVersion: d.AgentVersion,
			LastSeenAt:   d.LastSeenAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListDeviceReports returns recent report summaries for one device.
func (c *AdminController) ListDeviceReports(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("id")
	if _, err := c.Devices.Find(deviceID); err != nil {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := c.Reports.ListByDevice(deviceID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot list reports")
		return
	}
	type reportRow struct {
		ID               string  `json:"id"`
		CommandID        string  `json:"command_id,omitempty"`
		HealthScore      int     `json:"health_score"`
		DiskFreePercent  float64 `json:"disk_free_percent"`
		StartupAppsCount int     `json:"startup_apps_count"`
		OneLiner         string  `json:"one_liner"`
		CreatedAt        int64   `json:"created_at"`
	}
	out := make([]reportRow, 0, len(reports))
	for _, rep := range reports {
		out = append(out, reportRow{
			ID:               rep.ID,
			CommandID:        rep.CommandID,
			HealthScore:      rep.HealthScore,
			DiskFreePercent:  rep.DiskFreePercent,
			StartupAppsCount: rep.StartupAppsCount,
			OneLiner:         rep.OneLiner,
			CreatedAt:        rep.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
