package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Register inserts the document; a known ID is left untouched.
func (r *PGRepo) Register(ctx context.Context, doc Document) error {
	displayName := doc.DisplayName
	if displayName == "" {
		displayName = doc.FileName
	}
	const query = `
INSERT INTO documents (
	id, user_id, file_name, display_name, mime_type, size_bytes, storage_key, thumbnail_key, uploaded_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID, doc.UserID, doc.FileName, displayName, doc.MimeType,
		doc.SizeBytes, doc.StorageKey, doc.ThumbnailKey, doc.UploadedAt,
	)
	return err
}

// GetByID returns a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	const query = `
SELECT id, user_id, file_name, display_name, mime_type, size_bytes, storage_key, COALESCE(thumbnail_key, ''), uploaded_at
FROM documents
WHERE id = $1 AND user_id = $2`
	var doc Document
	err := r.DB.QueryRowContext(ctx, query, documentID, userID).Scan(
		&doc.ID, &doc.UserID, &doc.FileName, &doc.DisplayName, &doc.MimeType,
		&doc.SizeBytes, &doc.StorageKey, &doc.ThumbnailKey, &doc.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListByUser returns documents for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, file_name, display_name, mime_type, size_bytes, storage_key, COALESCE(thumbnail_key, ''), uploaded_at
FROM documents
WHERE user_id = $1
ORDER BY uploaded_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID, &doc.UserID, &doc.FileName, &doc.DisplayName, &doc.MimeType,
			&doc.SizeBytes, &doc.StorageKey, &doc.ThumbnailKey, &doc.UploadedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateDisplayName changes the display name only; identity is immutable.
func (r *PGRepo) UpdateDisplayName(ctx context.Context, userID, documentID, displayName string) error {
	const query = `
UPDATE documents SET display_name = $3 WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, documentID, userID, displayName)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
