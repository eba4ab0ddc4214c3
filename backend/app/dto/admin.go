package dto

import (
	"encoding/json"
	"time"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type EnrollTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type QueueCommandRequest struct {
	DeviceID string          `json:"device_id"`
	Type     string          `json:"type"`
	Params   json.RawMessage `json:"params,omitempty"`
}

type QueueCommandResponse struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
}
