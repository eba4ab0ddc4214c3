package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pc-insight/backend/app/dto"
	jwtutil "pc-insight/backend/app/jwt"
	"pc-insight/backend/app/middleware"
	"pc-insight/backend/app/services"
	"pc-insight/backend/global"
)

// AgentController implements the HTTP contract the device agent speaks:
// enroll, next-command, status updates, report upload and heartbeat.
type AgentController struct {
	Tokens         *services.TokenService
	Devices        *services.DeviceService
	Commands       *services.CommandService
	Reports        *services.ReportService
	Signer         *jwtutil.Signer
	DeviceTokenTTL time.Duration
}

func NewAgentController(tokens *services.TokenService, devices *services.DeviceService, commands *services.CommandService, reports *services.ReportService, signer *jwtutil.Signer, deviceTokenTTL time.Duration) *AgentController {
	if deviceTokenTTL <= 0 {
		deviceTokenTTL = 180 * 24 * time.Hour
	}
	return &AgentController{
		Tokens: tokens, Devices: devices, Commands: commands, Reports: reports,
		Signer: signer, DeviceTokenTTL: deviceTokenTTL,
	}
}

// Enroll exchanges a one-time enrollment token for device credentials.
// The enrollment token arrives as the bearer credential, not in the body.
func (c *AgentController) Enroll(w http.ResponseWriter, r *http.Request) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "Missing enrollment token")
		return
	}
	record, err := c.Tokens.Verify(strings.TrimPrefix(authz, "Bearer "))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "Invalid enrollment token")
		case errors.Is(err, services.ErrTokenUsed):
			writeError(w, http.StatusBadRequest, "Enrollment token already used")
		case errors.Is(err, services.ErrTokenExpired):
			writeError(w, http.StatusBadRequest, "Enrollment token expired")
		default:
			writeError(w, http.StatusInternalServerError, "Token verification failed")
		}
		return
	}

	var req dto.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceName == "" {
		writeError(w, http.StatusBadRequest, "Invalid enrollment request")
		return
	}

	device, err := c.Devices.Register(record.UserID, req.DeviceName, req.Platform, req.Arch, req.AgentVersion, req.DeviceFingerprint)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Cannot register device")
		return
	}
	if err := c.Tokens.Consume(record, device.ID); err != nil {
		// A concurrent enroll won the race for this token.
		writeError(w, http.StatusConflict, "Enrollment token already consumed")
		return
	}
	deviceToken, expiresAt, err := c.Signer.SignDevice(device.ID, c.DeviceTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Cannot issue device token")
		return
	}
	global.Logger.Info().Str("device", device.ID).Str("name", device.Name).Msg("device enrolled")
	writeJSON(w, http.StatusOK, dto.EnrollResponse{
		DeviceID:    device.ID,
		DeviceToken: deviceToken,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	})
}

// NextCommand hands the device the oldest queued command, or null.
func (c *AgentController) NextCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := c.deviceID(w, r)
	if deviceID == "" {
		return
	}
	_ = c.Devices.TouchLastSeen(deviceID)

	cmd, err := c.Commands.Next(deviceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Command lookup failed")
		return
	}
	if cmd == nil {
		writeJSON(w, http.StatusOK, dto.NextCommandResponse{Command: nil})
		return
	}
	params := json.RawMessage(cmd.ParamsJSON)
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	writeJSON(w, http.StatusOK, dto.NextCommandResponse{Command: &dto.CommandPayload{
		ID:       cmd.ID,
		Type:     cmd.Type,
		Params:   params,
		IssuedAt: cmd.CreatedAt,
	}})
}

// UpdateStatus records agent-side command progress.
func (c *AgentController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := c.deviceID(w, r)
	if deviceID == "" {
		return
	}
	commandID := r.PathValue("id")
	var req dto.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status update")
		return
	}
	err := c.Commands.UpdateFromAgent(deviceID, commandID, req.Status, req.Progress, req.Message)
	switch {
	case errors.Is(err, services.ErrCommandNotFound):
		writeError(w, http.StatusNotFound, "Command not found")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
	}
}

// UploadReport stores a sanitized report and closes the linked command.
func (c *AgentController) UploadReport(w http.ResponseWriter, r *http.Request) {
	deviceID := c.deviceID(w, r)
	if deviceID == "" {
		return
	}
	var req dto.ReportUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Report) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid report upload")
		return
	}
	report, err := c.Reports.Store(deviceID, req.CommandID, req.Report)
	if errors.Is(err, services.ErrReportTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Report payload too large")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Cannot store report")
		return
	}
	global.Logger.Info().Str("device", deviceID).Str("report", report.ID).Str("command", req.CommandID).Msg("report uploaded")
	writeJSON(w, http.StatusOK, dto.ReportUploadResponse{ReportID: report.ID, Message: "Report uploaded successfully"})
}

// Heartbeat refreshes last-seen without any other side effect.
func (c *AgentController) Heartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID := c.deviceID(w, r)
	if deviceID == "" {
		return
	}
	if err := c.Devices.TouchLastSeen(deviceID); err != nil {
		writeError(w, http.StatusInternalServerError, "Heartbeat failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (c *AgentController) deviceID(w http.ResponseWriter, r *http.Request) string {
	claims := middleware.ClaimsFrom(r)
	if claims == nil || claims.DeviceID == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return ""
	}
	return claims.DeviceID
}
