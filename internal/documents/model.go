package documents

import "time"

// Document is an uploaded file known to the pipeline. Identity is assigned at
// ingestion and never reused; renaming only changes DisplayName.
type Document struct {
	ID           string
	UserID       string
	FileName     string
	DisplayName  string
	MimeType     string
	SizeBytes    int64
	StorageKey   string
	ThumbnailKey string
	UploadedAt   time.Time
}
