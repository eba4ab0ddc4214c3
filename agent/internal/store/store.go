package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ProcessedCommand is one idempotency-ledger entry. Rows are append-only
// and evicted oldest-first once the ledger cap is exceeded.
type ProcessedCommand struct {
	ID        uint   `gorm:"primaryKey"`
	CommandID string `gorm:"uniqueIndex;size:191"`
	CreatedAt time.Time
}

// OutboxItem is one report awaiting delivery. Each row is independently
// addressable so flushing can run while new items are being added.
type OutboxItem struct {
	ID         string `gorm:"primaryKey;size:64"`
	CommandID  string `gorm:"size:191;index"`
	Report     []byte `gorm:"type:blob"`
	RetryCount int
	CreatedAt  time.Time `gorm:"index"`
}

// Open opens (creating if needed) the agent's sqlite database under the
// given data directory and migrates the durable-store tables.
func Open(dataDir string) (*gorm.DB, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := filepath.Join(dataDir, "agent.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&ProcessedCommand{}, &OutboxItem{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
