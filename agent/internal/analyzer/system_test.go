package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemProducerPing(t *testing.T) {
	report, err := NewSystemProducer().Run(context.Background(), ProfilePing)
	require.NoError(t, err)
	assert.Equal(t, 100, report.HealthScore)
	assert.Empty(t, report.Storage.Folders)
	assert.False(t, report.CreatedAt.IsZero())
}

func TestSystemProducerScansDownloads(t *testing.T) {
	home := t.TempDir()
	downloads := filepath.Join(home, "Downloads")
	require.NoError(t, os.MkdirAll(downloads, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(downloads, "a.bin"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(downloads, "b.bin"), make([]byte, 50), 0o644))

	p := &SystemProducer{HomeDir: home}
	report, err := p.Run(context.Background(), ProfileDownloads)
	require.NoError(t, err)

	require.Len(t, report.Storage.Folders, 1)
	folder := report.Storage.Folders[0]
	assert.Equal(t, "Downloads", folder.Name)
	assert.EqualValues(t, 150, folder.Bytes)
	assert.Equal(t, 2, folder.FileCount)
	assert.Equal(t, downloads, folder.Path)
	assert.NotEmpty(t, report.OneLiner)
	assert.Positive(t, report.Storage.TotalBytes)
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 100, healthScore(50))
	assert.Equal(t, 90, healthScore(15))
	assert.Equal(t, 75, healthScore(8))
	assert.Equal(t, 60, healthScore(2))
}
