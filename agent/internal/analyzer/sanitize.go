package analyzer

// SanitizeForUpload returns a copy of the report safe to leave the
// device: raw filesystem paths are stripped from folder entries while
// name, bytes and fileCount pass through untouched. The command params
// bag is accepted for future elevated sanitization policies; the only
// policy implemented today is the default (no paths).
func SanitizeForUpload(report *Report, params map[string]any) *Report {
	if report == nil {
		return nil
	}
	clean := *report
	clean.Storage.Folders = make([]FolderInfo, 0, len(report.Storage.Folders))
	for _, f := range report.Storage.Folders {
		clean.Storage.Folders = append(clean.Storage.Folders, FolderInfo{
			Name:      f.Name,
			Bytes:     f.Bytes,
			FileCount: f.FileCount,
		})
	}
	return &clean
}
