package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-insight/agent/internal/analyzer"
	"pc-insight/agent/internal/api"
	"pc-insight/agent/internal/executor"
	"pc-insight/agent/internal/logger"
	"pc-insight/agent/internal/store"
)

func init() {
	logger.L = zerolog.New(io.Discard)
}

type scriptedClient struct {
	queue    []*api.Command
	nextErr  error
	statuses []api.StatusUpdate
	uploads  []string
}

func (c *scriptedClient) NextCommand(ctx context.Context, id *store.Identity) (*api.Command, error) {
	if c.nextErr != nil {
		return nil, c.nextErr
	}
	if len(c.queue) == 0 {
		return nil, nil
	}
	cmd := c.queue[0]
	c.queue = c.queue[1:]
	return cmd, nil
}

func (c *scriptedClient) UpdateStatus(ctx context.Context, id *store.Identity, commandID string, update api.StatusUpdate) error {
	c.statuses = append(c.statuses, update)
	return nil
}

func (c *scriptedClient) UploadReport(ctx context.Context, id *store.Identity, commandID string, report json.RawMessage) error {
	c.uploads = append(c.uploads, commandID)
	return nil
}

type stubProducer struct{ err error }

func (p *stubProducer) Run(ctx context.Context, profile analyzer.Profile) (*analyzer.Report, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &analyzer.Report{HealthScore: 90}, nil
}

func newTestDaemon(t *testing.T, client *scriptedClient, producer analyzer.Producer) *Daemon {
	t.Helper()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	ledger := store.NewLedger(db, 0)
	outbox := store.NewOutbox(db)
	exec := executor.New(client, ledger, outbox, producer)
	ids := store.NewIdentityStore(t.TempDir())
	identity := &store.Identity{ServerURL: "https://x", DeviceID: "dev_1", DeviceToken: "tok"}
	return NewDaemon(client, exec, outbox, ids, identity, time.Second)
}

func TestCycleExecutesAndDeduplicates(t *testing.T) {
	cmd := &api.Command{ID: "cmd_1", Type: "RUN_FULL", Params: map[string]any{}}
	client := &scriptedClient{queue: []*api.Command{cmd, cmd}}
	d := newTestDaemon(t, client, &stubProducer{})

	d.cycle(context.Background())
	require.Equal(t, []string{"cmd_1"}, client.uploads)

	// The redelivered command is skipped by the ledger.
	d.cycle(context.Background())
	assert.Equal(t, []string{"cmd_1"}, client.uploads)
}

func TestCycleSurvivesPollError(t *testing.T) {
	client := &scriptedClient{nextErr: errors.New("server unreachable")}
	d := newTestDaemon(t, client, &stubProducer{})

	d.cycle(context.Background())
	assert.Empty(t, client.uploads)
	assert.Empty(t, client.statuses)
}

func TestCycleReportsCommandFailure(t *testing.T) {
	cmd := &api.Command{ID: "cmd_1", Type: "RUN_FULL"}
	client := &scriptedClient{queue: []*api.Command{cmd}}
	d := newTestDaemon(t, client, &stubProducer{err: errors.New("probe exploded")})

	d.cycle(context.Background())

	require.NotEmpty(t, client.statuses)
	last := client.statuses[len(client.statuses)-1]
	assert.Equal(t, api.StatusFailed, last.Status)
	assert.Contains(t, last.Message, "probe exploded")
	assert.Empty(t, client.uploads)
}

func TestReloadIdentityPicksUpRelink(t *testing.T) {
	client := &scriptedClient{}
	d := newTestDaemon(t, client, &stubProducer{})

	relinked := &store.Identity{ServerURL: "https://x", DeviceID: "dev_2", DeviceToken: "tok2", LinkedAt: time.Now()}
	require.NoError(t, d.ids.Save(relinked))

	d.reloadIdentity()
	assert.Equal(t, "dev_2", d.identity.DeviceID)
	assert.Equal(t, "tok2", d.identity.DeviceToken)
}

func TestReloadIdentityKeepsSessionOnMissingFile(t *testing.T) {
	client := &scriptedClient{}
	d := newTestDaemon(t, client, &stubProducer{})

	d.reloadIdentity()
	assert.Equal(t, "dev_1", d.identity.DeviceID)
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &scriptedClient{}
	d := newTestDaemon(t, client, &stubProducer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop on cancel")
	}
}
