package services

import (
	"encoding/json"
	"errors"
	"time"

	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"

	"gorm.io/gorm"
)

var ErrCommandNotFound = errors.New("command not found")

var validStatuses = map[string]bool{
	models.CommandRunning:   true,
	models.CommandSucceeded: true,
	models.CommandFailed:    true,
}

type CommandService struct{ commands *repo.CommandRepository }

func NewCommandService(commands *repo.CommandRepository) *CommandService {
	return &CommandService{commands: commands}
}

// Queue adds a command to a device's durable queue.
func (s *CommandService) Queue(deviceID, commandType string, params json.RawMessage) (*models.Command, error) {
	paramsJSON := "{}"
	if len(params) > 0 {
		paramsJSON = string(params)
	}
	cmd := &models.Command{
		ID:         GenerateID("cmd"),
		DeviceID:   deviceID,
		Type:       commandType,
		ParamsJSON: paramsJSON,
		Status:     models.CommandQueued,
	}
	if err := s.commands.Create(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Next claims the next queued command for the device, or nil.
func (s *CommandService) Next(deviceID string) (*models.Command, error) {
	return s.commands.PopNext(deviceID, time.Now())
}

// UpdateFromAgent applies an agent status update after verifying the
// command belongs to the reporting device.
func (s *CommandService) UpdateFromAgent(deviceID, commandID, status string, progress int, message string) error {
	if !validStatuses[status] {
		return errors.New("invalid status")
	}
	if _, err := s.commands.FindForDevice(commandID, deviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommandNotFound
		}
		return err
	}
	var finishedAt *time.Time
	if status == models.CommandSucceeded || status == models.CommandFailed {
		now := time.Now()
		finishedAt = &now
	}
	return s.commands.UpdateStatus(commandID, status, progress, message, finishedAt)
}

// CloseWithReport marks the linked command succeeded once its report is
// stored.
func (s *CommandService) CloseWithReport(deviceID, commandID, reportID string) error {
	return s.commands.MarkSucceeded(commandID, deviceID, reportID, time.Now())
}
