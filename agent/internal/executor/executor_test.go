package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-insight/agent/internal/analyzer"
	"pc-insight/agent/internal/api"
	"pc-insight/agent/internal/logger"
	"pc-insight/agent/internal/store"
)

func init() {
	logger.L = zerolog.New(io.Discard)
}

type fakeClient struct {
	statuses  []api.StatusUpdate
	uploads   []json.RawMessage
	uploadErr error
	statusErr error
}

func (f *fakeClient) UpdateStatus(ctx context.Context, id *store.Identity, commandID string, update api.StatusUpdate) error {
	f.statuses = append(f.statuses, update)
	return f.statusErr
}

func (f *fakeClient) UploadReport(ctx context.Context, id *store.Identity, commandID string, report json.RawMessage) error {
	f.uploads = append(f.uploads, append(json.RawMessage(nil), report...))
	return f.uploadErr
}

type fakeProducer struct {
	report   *analyzer.Report
	err      error
	profiles []analyzer.Profile
}

func (f *fakeProducer) Run(ctx context.Context, profile analyzer.Profile) (*analyzer.Report, error) {
	f.profiles = append(f.profiles, profile)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func sampleReport() *analyzer.Report {
	return &analyzer.Report{
		HealthScore: 82,
		OneLiner:    "Your PC looks healthy.",
		Storage: analyzer.StorageSummary{
			Folders: []analyzer.FolderInfo{
				{Name: "Downloads", Bytes: 1 << 30, FileCount: 42, Path: "/home/u/Downloads"},
			},
		},
	}
}

func newTestExecutor(t *testing.T, client *fakeClient, producer *fakeProducer) (*Executor, *store.Ledger, *store.Outbox) {
	t.Helper()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	ledger := store.NewLedger(db, 0)
	outbox := store.NewOutbox(db)
	return New(client, ledger, outbox, producer), ledger, outbox
}

func TestExecuteHappyPath(t *testing.T) {
	client := &fakeClient{}
	producer := &fakeProducer{report: sampleReport()}
	exec, ledger, outbox := newTestExecutor(t, client, producer)

	cmd := &api.Command{ID: "cmd_1", Type: "RUN_STORAGE_ONLY", Params: map[string]any{}}
	require.NoError(t, exec.Execute(context.Background(), cmd, &store.Identity{}))

	assert.Equal(t, []analyzer.Profile{analyzer.ProfileStorage}, producer.profiles)

	require.Len(t, client.statuses, 3)
	assert.Equal(t, api.StatusUpdate{Status: api.StatusRunning, Progress: 0, Message: "Starting analysis..."}, client.statuses[0])
	assert.Equal(t, api.StatusUpdate{Status: api.StatusRunning, Progress: 30, Message: "Analyzing system..."}, client.statuses[1])
	assert.Equal(t, api.StatusUpdate{Status: api.StatusRunning, Progress: 80, Message: "Uploading report..."}, client.statuses[2])

	require.Len(t, client.uploads, 1)
	assert.NotContains(t, string(client.uploads[0]), "/home/u/Downloads")

	done, err := ledger.Has("cmd_1")
	require.NoError(t, err)
	assert.True(t, done)

	items, err := outbox.List()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExecuteSkipsProcessedCommand(t *testing.T) {
	client := &fakeClient{}
	producer := &fakeProducer{report: sampleReport()}
	exec, ledger, _ := newTestExecutor(t, client, producer)
	require.NoError(t, ledger.Add("cmd_dup"))

	cmd := &api.Command{ID: "cmd_dup", Type: "RUN_FULL"}
	require.NoError(t, exec.Execute(context.Background(), cmd, &store.Identity{}))

	assert.Empty(t, producer.profiles)
	assert.Empty(t, client.statuses)
	assert.Empty(t, client.uploads)
}

func TestExecuteQueuesReportWhenUploadFails(t *testing.T) {
	client := &fakeClient{uploadErr: errors.New("server unreachable")}
	producer := &fakeProducer{report: sampleReport()}
	exec, ledger, outbox := newTestExecutor(t, client, producer)

	cmd := &api.Command{ID: "cmd_1", Type: "RUN_FULL"}
	require.NoError(t, exec.Execute(context.Background(), cmd, &store.Identity{}))

	items, err := outbox.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "cmd_1", items[0].CommandID)
	assert.Equal(t, 0, items[0].RetryCount)
	assert.NotContains(t, string(items[0].Report), "/home/u/Downloads")

	// The outbox enqueue is the durable capture, so the command is done.
	done, err := ledger.Has("cmd_1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestExecuteReportsProducerFailure(t *testing.T) {
	client := &fakeClient{}
	producer := &fakeProducer{err: errors.New("disk probe failed")}
	exec, ledger, outbox := newTestExecutor(t, client, producer)

	cmd := &api.Command{ID: "cmd_1", Type: "RUN_FULL"}
	err := exec.Execute(context.Background(), cmd, &store.Identity{})
	require.ErrorContains(t, err, "analysis failed")

	require.Len(t, client.statuses, 3)
	last := client.statuses[len(client.statuses)-1]
	assert.Equal(t, api.StatusFailed, last.Status)
	assert.True(t, strings.Contains(last.Message, "disk probe failed"))

	// Failed commands stay out of the ledger so a redelivery can retry.
	done, hasErr := ledger.Has("cmd_1")
	require.NoError(t, hasErr)
	assert.False(t, done)

	items, listErr := outbox.List()
	require.NoError(t, listErr)
	assert.Empty(t, items)
}

func TestExecuteToleratesStatusFailures(t *testing.T) {
	client := &fakeClient{statusErr: errors.New("status endpoint down")}
	producer := &fakeProducer{report: sampleReport()}
	exec, ledger, _ := newTestExecutor(t, client, producer)

	cmd := &api.Command{ID: "cmd_1", Type: "PING"}
	require.NoError(t, exec.Execute(context.Background(), cmd, &store.Identity{}))

	require.Len(t, client.uploads, 1)
	done, err := ledger.Has("cmd_1")
	require.NoError(t, err)
	assert.True(t, done)
}
