package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenInvalid = errors.New("invalid enrollment token")
	ErrTokenUsed    = errors.New("enrollment token already used")
	ErrTokenExpired = errors.New("enrollment token expired")
)

// TokenService mints and verifies one-time enrollment tokens. Plaintext
// tokens are shown once at mint time; only hashes are stored.
type TokenService struct {
	tokens *repo.EnrollTokenRepository
	ttl    time.Duration
}

func NewTokenService(tokens *repo.EnrollTokenRepository, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenService{tokens: tokens, ttl: ttl}
}

func (s *TokenService) Mint(userID uint) (string, *models.EnrollToken, error) {
	plaintext := "entok_" + GenerateID("")
	record := &models.EnrollToken{
		ID:        GenerateID("et"),
		UserID:    userID,
		TokenHash: HashToken(plaintext),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.tokens.Create(record); err != nil {
		return "", nil, err
	}
	return plaintext, record, nil
}

// Verify checks a presented plaintext token. It does not consume it;
// Consume does, atomically.
func (s *TokenService) Verify(plaintext string) (*models.EnrollToken, error) {
	record, err := s.tokens.FindByHash(HashToken(plaintext))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if record.UsedAt != nil {
		return nil, ErrTokenUsed
	}
	if record.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return record, nil
}

func (s *TokenService) Consume(record *models.EnrollToken, deviceID string) error {
	affected, err := s.tokens.MarkUsed(record.ID, deviceID, time.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenUsed
	}
	return nil
}

// GenerateID returns a prefixed opaque identifier.
func GenerateID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// HashToken hashes a bearer secret for at-rest storage.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
