package services

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "backend.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.EnrollToken{},
		&models.Command{},
		&models.Report{},
	))
	return db
}

func newTestTokenService(t *testing.T, db *gorm.DB) *TokenService {
	t.Helper()
	return NewTokenService(repo.NewEnrollTokenRepository(db), 15*time.Minute)
}

func TestTokenMintAndVerify(t *testing.T) {
	db := openTestDB(t)
	svc := newTestTokenService(t, db)

	plaintext, record, err := svc.Mint(1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, "entok_"))
	assert.NotEqual(t, plaintext, record.TokenHash)
	assert.EqualValues(t, 1, record.UserID)

	found, err := svc.Verify(plaintext)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
}

func TestTokenVerifyUnknown(t *testing.T) {
	svc := newTestTokenService(t, openTestDB(t))
	_, err := svc.Verify("entok_nothing")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIsSingleUse(t *testing.T) {
	db := openTestDB(t)
	svc := newTestTokenService(t, db)

	plaintext, record, err := svc.Mint(1)
	require.NoError(t, err)

	require.NoError(t, svc.Consume(record, "dev_1"))
	require.ErrorIs(t, svc.Consume(record, "dev_2"), ErrTokenUsed)

	_, err = svc.Verify(plaintext)
	require.ErrorIs(t, err, ErrTokenUsed)
}

func TestTokenExpiry(t *testing.T) {
	db := openTestDB(t)
	svc := newTestTokenService(t, db)

	plaintext, record, err := svc.Mint(1)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.EnrollToken{}).
		Where("id = ?", record.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = svc.Verify(plaintext)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestGenerateID(t *testing.T) {
	a := GenerateID("cmd")
	b := GenerateID("cmd")
	assert.True(t, strings.HasPrefix(a, "cmd_"))
	assert.NotEqual(t, a, b)
	assert.NotContains(t, GenerateID(""), "_")
}
