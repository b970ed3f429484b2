package domain

// SnapshotInfo is returned by Backup and Restore.
type SnapshotInfo struct {
	Database  string `json:"database"`
	Username  string `json:"username"`
	Documents int    `json:"documents"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	CreatedAt string `json:"created_at"`
}
