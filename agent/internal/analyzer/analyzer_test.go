package analyzer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileForCommand(t *testing.T) {
	tests := []struct {
		commandType string
		want        Profile
	}{
		{"RUN_FULL", ProfileFull},
		{"RUN_DEEP", ProfileDeep},
		{"RUN_STORAGE_ONLY", ProfileStorage},
		{"RUN_PRIVACY_ONLY", ProfilePrivacy},
		{"RUN_DOWNLOADS_TOP", ProfileDownloads},
		{"PING", ProfilePing},
		{"SOMETHING_NEW", ProfileFull},
		{"", ProfileFull},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProfileForCommand(tt.commandType), "type %q", tt.commandType)
	}
}

func TestSanitizeForUploadStripsPaths(t *testing.T) {
	report := &Report{
		HealthScore: 77,
		Storage: StorageSummary{
			Folders: []FolderInfo{
				{Name: "Downloads", Bytes: 100, FileCount: 3, Path: "/home/u/Downloads"},
				{Name: "Documents", Bytes: 200, FileCount: 7, Path: "/home/u/Documents"},
			},
			TotalBytes: 1000,
		},
	}

	clean := SanitizeForUpload(report, nil)
	require.NotNil(t, clean)
	require.Len(t, clean.Storage.Folders, 2)
	for i, f := range clean.Storage.Folders {
		assert.Empty(t, f.Path)
		assert.Equal(t, report.Storage.Folders[i].Name, f.Name)
		assert.Equal(t, report.Storage.Folders[i].Bytes, f.Bytes)
		assert.Equal(t, report.Storage.Folders[i].FileCount, f.FileCount)
	}
	assert.Equal(t, 77, clean.HealthScore)
	assert.EqualValues(t, 1000, clean.Storage.TotalBytes)

	// Input stays untouched.
	assert.Equal(t, "/home/u/Downloads", report.Storage.Folders[0].Path)

	payload, err := json.Marshal(clean)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "/home/u")
	assert.NotContains(t, string(payload), `"path"`)
}

func TestSanitizeForUploadNilReport(t *testing.T) {
	assert.Nil(t, SanitizeForUpload(nil, nil))
}
