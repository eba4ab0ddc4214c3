package store

import (
	"fmt"

	"gorm.io/gorm"
)

// DefaultLedgerCap bounds how many processed command IDs are retained.
const DefaultLedgerCap = 1000

// Ledger is the durable set of command IDs this agent has already
// completed. A command whose ID is present must never run again, across
// restarts included.
type Ledger struct {
	db  *gorm.DB
	cap int
}

func NewLedger(db *gorm.DB, maxEntries int) *Ledger {
	if maxEntries <= 0 {
		maxEntries = DefaultLedgerCap
	}
	return &Ledger{db: db, cap: maxEntries}
}

func (l *Ledger) Has(commandID string) (bool, error) {
	var count int64
	err := l.db.Model(&ProcessedCommand{}).
		Where("command_id = ?", commandID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return count > 0, nil
}

// Add records the command ID if absent and evicts the oldest entries once
// the cap is exceeded. The mutation is durable before Add returns.
func (l *Ledger) Add(commandID string) error {
	present, err := l.Has(commandID)
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	if err := l.db.Create(&ProcessedCommand{CommandID: commandID}).Error; err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}

	var count int64
	if err := l.db.Model(&ProcessedCommand{}).Count(&count).Error; err != nil {
		return fmt.Errorf("ledger count: %w", err)
	}
	if excess := count - int64(l.cap); excess > 0 {
		var stale []uint
		if err := l.db.Model(&ProcessedCommand{}).
			Order("id ASC").
			Limit(int(excess)).
			Pluck("id", &stale).Error; err != nil {
			return fmt.Errorf("ledger evict scan: %w", err)
		}
		if err := l.db.Delete(&ProcessedCommand{}, stale).Error; err != nil {
			return fmt.Errorf("ledger evict: %w", err)
		}
	}
	return nil
}
