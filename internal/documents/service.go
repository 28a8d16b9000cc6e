package documents

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/storage/object"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/telemetry"
)

// AnalysisNotifier observes registrations and starts analysis. Registration
// is the trigger; the registry itself knows nothing about suggestions.
type AnalysisNotifier interface {
	Start(ctx context.Context, doc Document)
}

// Service contains business logic for the document registry.
type Service struct {
	Store    object.ObjectStore
	Repo     DocumentsRepo
	Inbox    inbox.Store
	Notifier AnalysisNotifier
}

// Upload saves the file to object storage, registers the document, seeds the
// inbox entry, and notifies the dispatcher.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Document, error) {
	if fileName == "" {
		return Document{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:          uuid.NewString(),
		UserID:      userID,
		FileName:    fileName,
		DisplayName: fileName,
		MimeType:    mimeType,
		SizeBytes:   size,
		StorageKey:  storageKey,
		UploadedAt:  time.Now().UTC(),
	}

	return s.Register(ctx, doc)
}

// Register records the document and triggers analysis. Idempotent by ID:
// repeated notifications for the same document register once and the
// dispatcher's own guard suppresses duplicate submissions.
func (s *Service) Register(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" || doc.UserID == "" {
		return Document{}, ErrInvalidInput
	}

	if err := s.Repo.Register(ctx, doc); err != nil {
		return Document{}, err
	}

	if s.Inbox != nil {
		if err := s.Inbox.Upsert(ctx, inbox.InboxItem{
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Status:     inbox.StatusUploaded,
		}); err != nil {
			return Document{}, err
		}
	}

	telemetry.Info("document.registered", map[string]any{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"mime_type":   doc.MimeType,
		"size_bytes":  doc.SizeBytes,
	})

	if s.Notifier != nil {
		s.Notifier.Start(ctx, doc)
	}
	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns documents for a user, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// UpdateDisplayName changes a document's display name. Identity is never
// affected.
func (s *Service) UpdateDisplayName(ctx context.Context, userID, documentID, displayName string) error {
	if userID == "" || documentID == "" || displayName == "" {
		return ErrInvalidInput
	}
	return s.Repo.UpdateDisplayName(ctx, userID, documentID, displayName)
}
