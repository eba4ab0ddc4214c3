package services

import (
	"time"

	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"
)

type DeviceService struct{ devices *repo.DeviceRepository }

func NewDeviceService(devices *repo.DeviceRepository) *DeviceService {
	return &DeviceService{devices: devices}
}

// Register creates the device record at enrollment. The fingerprint is
// stored hashed; it is a hint, not an authenticator.
func (s *DeviceService) Register(userID uint, name, platform, arch, agentVersion, fingerprint string) (*models.Device, error) {
	now := time.Now()
	d := &models.Device{
		ID:              GenerateID("dev"),
		UserID:          userID,
		Name:            name,
		Platform:        platform,
		Arch:            arch,
		FingerprintHash: HashToken(fingerprint),
		AgentVersion:    agentVersion,
		CreatedAt:       now,
		LastSeenAt:      now,
	}
	if err := s.devices.Create(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DeviceService) Find(deviceID string) (*models.Device, error) {
	return s.devices.FindByID(deviceID)
}

func (s *DeviceService) TouchLastSeen(deviceID string) error {
	return s.devices.TouchLastSeen(deviceID, time.Now())
}

func (s *DeviceService) ListAll() ([]models.Device, error) { return s.devices.ListAll() }
