// Package executor runs one remote command end to end: idempotency
// check, progress reporting, report production, sanitization and
// upload-or-outbox capture.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"pc-insight/agent/internal/analyzer"
	"pc-insight/agent/internal/api"
	"pc-insight/agent/internal/logger"
	"pc-insight/agent/internal/store"
)

// ControlClient is the slice of the remote control client the executor
// uses.
type ControlClient interface {
	UpdateStatus(ctx context.Context, id *store.Identity, commandID string, update api.StatusUpdate) error
	UploadReport(ctx context.Context, id *store.Identity, commandID string, report json.RawMessage) error
}

type Executor struct {
	client   ControlClient
	ledger   *store.Ledger
	outbox   *store.Outbox
	producer analyzer.Producer
}

func New(client ControlClient, ledger *store.Ledger, outbox *store.Outbox, producer analyzer.Producer) *Executor {
	return &Executor{client: client, ledger: ledger, outbox: outbox, producer: producer}
}

// Execute processes a single command. A command ID already in the ledger
// returns immediately with no side effects: the server may redeliver, the
// agent must not re-run. The ledger is committed as soon as the report is
// durably captured — after a successful direct upload or a successful
// outbox enqueue — so an outboxed report never causes re-execution while
// it waits for a flush.
func (e *Executor) Execute(ctx context.Context, cmd *api.Command, id *store.Identity) error {
	done, err := e.ledger.Has(cmd.ID)
	if err != nil {
		return err
	}
	if done {
		logger.Infof("Command already processed, skipping: %s", cmd.ID)
		return nil
	}

	e.reportStatus(ctx, id, cmd.ID, api.StatusUpdate{Status: api.StatusRunning, Progress: 0, Message: "Starting analysis..."})

	profile := analyzer.ProfileForCommand(cmd.Type)

	e.reportStatus(ctx, id, cmd.ID, api.StatusUpdate{Status: api.StatusRunning, Progress: 30, Message: "Analyzing system..."})

	report, err := e.producer.Run(ctx, profile)
	if err != nil {
		err = fmt.Errorf("analysis failed: %w", err)
		e.reportStatus(ctx, id, cmd.ID, api.StatusUpdate{Status: api.StatusFailed, Progress: 0, Message: err.Error()})
		return err
	}

	e.reportStatus(ctx, id, cmd.ID, api.StatusUpdate{Status: api.StatusRunning, Progress: 80, Message: "Uploading report..."})

	sanitized := analyzer.SanitizeForUpload(report, cmd.Params)
	payload, err := json.Marshal(sanitized)
	if err != nil {
		err = fmt.Errorf("encode report: %w", err)
		e.reportStatus(ctx, id, cmd.ID, api.StatusUpdate{Status: api.StatusFailed, Progress: 0, Message: err.Error()})
		return err
	}

	if uploadErr := e.client.UploadReport(ctx, id, cmd.ID, payload); uploadErr != nil {
		// Delivery failure, not command failure: capture the report in
		// the outbox and let flush cycles finish the job.
		if addErr := e.outbox.Add(cmd.ID, payload); addErr != nil {
			err = fmt.Errorf("upload failed and outbox rejected report: %w", addErr)
			e.reportStatus(ctx, id, cmd.ID, api.StatusUpdate{Status: api.StatusFailed, Progress: 0, Message: err.Error()})
			return err
		}
		logger.Warnf("Upload failed for command %s, report queued in outbox: %v", cmd.ID, uploadErr)
		if err := e.ledger.Add(cmd.ID); err != nil {
			return err
		}
		return nil
	}

	if err := e.ledger.Add(cmd.ID); err != nil {
		return err
	}
	logger.Infof("Report uploaded for command %s", cmd.ID)
	return nil
}

// reportStatus is best-effort: a dropped progress update is logged and
// never fails the command.
func (e *Executor) reportStatus(ctx context.Context, id *store.Identity, commandID string, update api.StatusUpdate) {
	if err := e.client.UpdateStatus(ctx, id, commandID, update); err != nil {
		logger.Warnf("Status update (%s/%d%%) for command %s failed: %v", update.Status, update.Progress, commandID, err)
	}
}
