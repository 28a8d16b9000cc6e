package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // userID -> documents
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
	}
}

// Register stores the document unless its ID is already known.
func (r *MemoryRepo) Register(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data[doc.UserID] {
		if existing.ID == doc.ID {
			return nil
		}
	}
	if doc.DisplayName == "" {
		doc.DisplayName = doc.FileName
	}
	r.data[doc.UserID] = append(r.data[doc.UserID], doc)
	return nil
}

// GetByID returns a document by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == documentID {
			return docs[i], nil
		}
	}
	return Document{}, ErrNotFound
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	userDocs := r.data[userID]
	r.mu.RUnlock()

	if len(userDocs) == 0 || offset >= len(userDocs) {
		return []Document{}, nil
	}

	// Copy and sort newest-first by UploadedAt.
	docs := make([]Document, len(userDocs))
	copy(docs, userDocs)
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return docs[offset:end], nil
}

// UpdateDisplayName changes the display name of a document in place.
func (r *MemoryRepo) UpdateDisplayName(ctx context.Context, userID, documentID, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == documentID {
			docs[i].DisplayName = displayName
			r.data[userID] = docs
			return nil
		}
	}
	return ErrNotFound
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
