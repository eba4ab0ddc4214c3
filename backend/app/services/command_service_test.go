package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pc-insight/backend/app/models"
	"pc-insight/backend/app/repo"
)

func newTestCommandService(t *testing.T, db *gorm.DB) *CommandService {
	t.Helper()
	return NewCommandService(repo.NewCommandRepository(db))
}

func TestCommandQueueDefaults(t *testing.T) {
	svc := newTestCommandService(t, openTestDB(t))

	cmd, err := svc.Queue("dev_1", "RUN_FULL", nil)
	require.NoError(t, err)
	assert.Equal(t, models.CommandQueued, cmd.Status)
	assert.Equal(t, "{}", cmd.ParamsJSON)

	withParams, err := svc.Queue("dev_1", "RUN_DEEP", json.RawMessage(`{"depth":2}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"depth":2}`, withParams.ParamsJSON)
}

func TestCommandNextClaimsOldestAndDrains(t *testing.T) {
	db := openTestDB(t)
	svc := newTestCommandService(t, db)

	first, err := svc.Queue("dev_1", "RUN_FULL", nil)
	require.NoError(t, err)
	second, err := svc.Queue("dev_1", "PING", nil)
	require.NoError(t, err)

	got, err := svc.Next("dev_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	// The claim flips the row to running so it is never handed out twice.
	var stored models.Command
	require.NoError(t, db.First(&stored, "id = ?", first.ID).Error)
	assert.Equal(t, models.CommandRunning, stored.Status)
	require.NotNil(t, stored.StartedAt)

	got, err = svc.Next("dev_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	got, err = svc.Next("dev_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCommandNextScopesByDevice(t *testing.T) {
	svc := newTestCommandService(t, openTestDB(t))
	_, err := svc.Queue("dev_other", "RUN_FULL", nil)
	require.NoError(t, err)

	got, err := svc.Next("dev_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCommandUpdateFromAgent(t *testing.T) {
	db := openTestDB(t)
	svc := newTestCommandService(t, db)
	cmd, err := svc.Queue("dev_1", "RUN_FULL", nil)
	require.NoError(t, err)

	require.EqualError(t, svc.UpdateFromAgent("dev_1", cmd.ID, "exploded", 0, ""), "invalid status")
	require.ErrorIs(t, svc.UpdateFromAgent("dev_other", cmd.ID, models.CommandRunning, 30, ""), ErrCommandNotFound)
	require.ErrorIs(t, svc.UpdateFromAgent("dev_1", "cmd_missing", models.CommandRunning, 30, ""), ErrCommandNotFound)

	require.NoError(t, svc.UpdateFromAgent("dev_1", cmd.ID, models.CommandRunning, 30, "Analyzing system..."))
	var stored models.Command
	require.NoError(t, db.First(&stored, "id = ?", cmd.ID).Error)
	assert.Equal(t, 30, stored.Progress)
	assert.Nil(t, stored.FinishedAt)

	require.NoError(t, svc.UpdateFromAgent("dev_1", cmd.ID, models.CommandFailed, 0, "probe exploded"))
	require.NoError(t, db.First(&stored, "id = ?", cmd.ID).Error)
	assert.Equal(t, models.CommandFailed, stored.Status)
	require.NotNil(t, stored.FinishedAt)
}

func TestCommandCloseWithReport(t *testing.T) {
	db := openTestDB(t)
	svc := newTestCommandService(t, db)
	cmd, err := svc.Queue("dev_1", "RUN_FULL", nil)
	require.NoError(t, err)

	require.NoError(t, svc.CloseWithReport("dev_1", cmd.ID, "rpt_1"))
	var stored models.Command
	require.NoError(t, db.First(&stored, "id = ?", cmd.ID).Error)
	assert.Equal(t, models.CommandSucceeded, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, "rpt_1", stored.ReportID)
}
