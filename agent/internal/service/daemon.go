// Package service hosts the agent daemon: a single-threaded polling loop
// that fetches commands, executes them and flushes the outbox. A failing
// command or flush never takes the loop down.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pc-insight/agent/internal/api"
	"pc-insight/agent/internal/executor"
	"pc-insight/agent/internal/logger"
	"pc-insight/agent/internal/store"
)

// Client is the full remote control surface the daemon drives.
type Client interface {
	NextCommand(ctx context.Context, id *store.Identity) (*api.Command, error)
	UpdateStatus(ctx context.Context, id *store.Identity, commandID string, update api.StatusUpdate) error
	UploadReport(ctx context.Context, id *store.Identity, commandID string, report json.RawMessage) error
}

type Daemon struct {
	client   Client
	exec     *executor.Executor
	outbox   *store.Outbox
	ids      *store.IdentityStore
	identity *store.Identity
	interval time.Duration
}

func NewDaemon(client Client, exec *executor.Executor, outbox *store.Outbox, ids *store.IdentityStore, identity *store.Identity, interval time.Duration) *Daemon {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	return &Daemon{client: client, exec: exec, outbox: outbox, ids: ids, identity: identity, interval: interval}
}

// Run polls until the context is cancelled. The identity file is watched
// so a re-link while the daemon runs takes effect without a restart.
func (d *Daemon) Run(ctx context.Context) error {
	var events chan fsnotify.Event
	var watchErrs chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("Identity watcher unavailable, re-link requires restart: %v", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(d.ids.Path())); err != nil {
			logger.Warnf("Cannot watch identity dir: %v", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	logger.Infof("Agent polling every %v", d.interval)
	d.flushOutbox(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if filepath.Base(ev.Name) == filepath.Base(d.ids.Path()) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				d.reloadIdentity()
			}
		case err := <-watchErrs:
			logger.Warnf("Identity watcher error: %v", err)
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

// cycle is one poll iteration. Every failure inside is caught and
// logged; only context cancellation escapes.
func (d *Daemon) cycle(ctx context.Context) {
	cmd, err := d.client.NextCommand(ctx, d.identity)
	switch {
	case err != nil:
		logger.Warnf("Polling error: %v", err)
	case cmd != nil:
		logger.Infof("Received command: %s (%s)", cmd.Type, cmd.ID)
		if execErr := d.exec.Execute(ctx, cmd, d.identity); execErr != nil {
			logger.Errorf("Command failed: %v", execErr)
			// Second best-effort terminal update; the executor may have
			// failed before it could send one.
			if stErr := d.client.UpdateStatus(ctx, d.identity, cmd.ID, api.StatusUpdate{
				Status:  api.StatusFailed,
				Message: execErr.Error(),
			}); stErr != nil {
				logger.Warnf("Failed-status update for command %s not delivered: %v", cmd.ID, stErr)
			}
		} else {
			logger.Infof("Command completed: %s", cmd.ID)
		}
	}
	d.flushOutbox(ctx)
}

func (d *Daemon) flushOutbox(ctx context.Context) {
	if err := d.outbox.Flush(ctx, d.client, d.identity); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("Outbox flush error: %v", err)
	}
}

func (d *Daemon) reloadIdentity() {
	id, err := d.ids.Load()
	if err != nil {
		logger.Warnf("Identity reload failed: %v", err)
		return
	}
	if id == nil {
		logger.Warn("Identity file removed; keeping current session credentials")
		return
	}
	if id.DeviceID != d.identity.DeviceID || id.DeviceToken != d.identity.DeviceToken || id.ServerURL != d.identity.ServerURL {
		d.identity = id
		logger.Infof("Identity reloaded after re-link, device=%s", id.DeviceID)
	}
}
