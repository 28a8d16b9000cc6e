package documents

import "context"

// DocumentsRepo defines persistence operations for the document registry.
// Register is idempotent by ID: re-registering a known document is a no-op,
// which protects against duplicate upload-completion notifications.
type DocumentsRepo interface {
	Register(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	UpdateDisplayName(ctx context.Context, userID, documentID, displayName string) error
}
