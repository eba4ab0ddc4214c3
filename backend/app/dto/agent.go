package dto

import (
	"encoding/json"
	"time"
)

type EnrollRequest struct {
	DeviceName        string `json:"device_name"`
	Platform          string `json:"platform"`
	Arch              string `json:"arch"`
	AgentVersion      string `json:"agent_version"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

type EnrollResponse struct {
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type CommandPayload struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Params   json.RawMessage `json:"params"`
	IssuedAt time.Time       `json:"issued_at"`
}

type NextCommandResponse struct {
	Command *CommandPayload `json:"command"`
}

type StatusUpdateRequest struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type ReportUploadRequest struct {
	CommandID string          `json:"command_id,omitempty"`
	Report    json.RawMessage `json:"report"`
}

type ReportUploadResponse struct {
	ReportID string `json:"report_id"`
	Message  string `json:"message"`
}
