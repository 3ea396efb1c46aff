package files

import "time"

// FileRecord is the metadata kept for one stored blob.
type FileRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	StorageKey   string    `json:"-"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListedFile is a record enriched with a time-limited download link.
type ListedFile struct {
	FileRecord
	AccessURL string `json:"accessUrl"`
	Kind      Kind   `json:"kind"`
}
