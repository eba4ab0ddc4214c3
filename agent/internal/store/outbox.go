package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pc-insight/agent/internal/logger"
)

// DefaultRetryCeiling is how many failed flush attempts an item survives
// before it is dropped for good.
const DefaultRetryCeiling = 10

// Uploader is the slice of the remote control client the outbox needs.
type Uploader interface {
	UploadReport(ctx context.Context, id *Identity, commandID string, report json.RawMessage) error
}

// Outbox is the durable queue of reports whose direct upload failed.
// Delivery is at-least-once: an item stays until it uploads or hits the
// retry ceiling.
type Outbox struct {
	db      *gorm.DB
	ceiling int

	// OnPermanentFailure, when set, is invoked for every item dropped at
	// the retry ceiling so a higher layer can surface the loss.
	OnPermanentFailure func(item OutboxItem)
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db, ceiling: DefaultRetryCeiling}
}

// Add persists a new item with a fresh ID and a zero retry count.
func (o *Outbox) Add(commandID string, report json.RawMessage) error {
	item := OutboxItem{
		ID:        uuid.NewString(),
		CommandID: commandID,
		Report:    append([]byte(nil), report...),
	}
	if err := o.db.Create(&item).Error; err != nil {
		return fmt.Errorf("outbox add: %w", err)
	}
	return nil
}

// List returns all items ordered by creation time ascending. An empty
// store yields an empty slice.
func (o *Outbox) List() ([]OutboxItem, error) {
	var items []OutboxItem
	if err := o.db.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("outbox list: %w", err)
	}
	return items, nil
}

// Flush attempts to upload every item present at call time. Items added
// during the pass are picked up next cycle. Upload retries within one
// attempt are the client's business; cross-cycle retries are ours.
func (o *Outbox) Flush(ctx context.Context, up Uploader, id *Identity) error {
	items, err := o.List()
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := up.UploadReport(ctx, id, item.CommandID, item.Report); err != nil {
			item.RetryCount++
			if item.RetryCount >= o.ceiling {
				logger.Errorf("Outbox item %s failed permanently after %d attempts: %v", item.ID, item.RetryCount, err)
				if delErr := o.db.Delete(&OutboxItem{}, "id = ?", item.ID).Error; delErr != nil {
					return fmt.Errorf("outbox drop %s: %w", item.ID, delErr)
				}
				if o.OnPermanentFailure != nil {
					o.OnPermanentFailure(item)
				}
				continue
			}
			logger.Warnf("Outbox item %s upload failed (attempt %d): %v", item.ID, item.RetryCount, err)
			if saveErr := o.db.Model(&OutboxItem{}).
				Where("id = ?", item.ID).
				Update("retry_count", item.RetryCount).Error; saveErr != nil {
				return fmt.Errorf("outbox update %s: %w", item.ID, saveErr)
			}
			continue
		}
		if err := o.db.Delete(&OutboxItem{}, "id = ?", item.ID).Error; err != nil {
			return fmt.Errorf("outbox delete %s: %w", item.ID, err)
		}
		logger.Infof("Flushed outbox item %s", item.ID)
	}
	return nil
}
