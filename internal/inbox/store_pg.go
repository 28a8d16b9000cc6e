package inbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGStore implements Store using Postgres. Status transitions run inside a
// transaction that locks the item row, giving the per-document mutual
// exclusion the tie-break rule requires.
type PGStore struct {
	DB *sql.DB
}

// Upsert inserts the item, leaving existing rows untouched.
func (s *PGStore) Upsert(ctx context.Context, item InboxItem) error {
	status := item.Status
	if status == "" {
		status = StatusUploaded
	}
	suggestionJSON, err := marshalSuggestion(item.Suggestion)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO inbox_items (document_id, user_id, status, suggestion, last_error, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (document_id) DO NOTHING`
	_, err = s.DB.ExecContext(ctx, query, item.DocumentID, item.UserID, string(status), suggestionJSON, item.LastError, time.Now().UTC())
	return err
}

// Get returns the item for a document.
func (s *PGStore) Get(ctx context.Context, documentID string) (InboxItem, error) {
	const query = `
SELECT document_id, user_id, status, suggestion, last_error, updated_at
FROM inbox_items WHERE document_id = $1`
	return scanItem(s.DB.QueryRowContext(ctx, query, documentID))
}

// ListActive returns non-terminal items for a user, newest update first.
func (s *PGStore) ListActive(ctx context.Context, userID string) ([]InboxItem, error) {
	const query = `
SELECT document_id, user_id, status, suggestion, last_error, updated_at
FROM inbox_items
WHERE user_id = $1 AND status NOT IN ('accepted', 'dismissed')
ORDER BY updated_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]InboxItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetStatus applies a status transition with the item row locked.
func (s *PGStore) SetStatus(ctx context.Context, documentID string, status Status) error {
	return s.mutate(ctx, documentID, func(item *InboxItem) error {
		if !allowedTransitions[item.Status][status] {
			return ErrInvalidTransition
		}
		item.Status = status
		if status == StatusUploaded {
			item.Suggestion = nil
		}
		if status == StatusAnalyzing || status == StatusSuggested || status == StatusAccepted {
			item.LastError = ""
		}
		return nil
	})
}

// SetSuggestion stores the suggestion and moves the item to suggested.
func (s *PGStore) SetSuggestion(ctx context.Context, documentID string, suggestion Suggestion) error {
	return s.mutate(ctx, documentID, func(item *InboxItem) error {
		suggestion.DocumentID = documentID
		item.Suggestion = &suggestion
		item.Status = StatusSuggested
		item.LastError = ""
		return nil
	})
}

// SetFailure reverts the item to uploaded and records the error message.
func (s *PGStore) SetFailure(ctx context.Context, documentID string, message string) error {
	return s.mutate(ctx, documentID, func(item *InboxItem) error {
		item.Status = StatusUploaded
		item.Suggestion = nil
		item.LastError = message
		return nil
	})
}

// mutate runs a read-modify-write on a single item inside a transaction. The
// terminal check happens after the row lock is taken, so a completed dismiss
// always wins over a racing completion.
func (s *PGStore) mutate(ctx context.Context, documentID string, apply func(*InboxItem) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
SELECT document_id, user_id, status, suggestion, last_error, updated_at
FROM inbox_items WHERE document_id = $1 FOR UPDATE`
	item, err := scanItem(tx.QueryRowContext(ctx, query, documentID))
	if err != nil {
		return err
	}
	if item.Status.Terminal() {
		return ErrTerminal
	}
	if err := apply(&item); err != nil {
		return err
	}

	suggestionJSON, err := marshalSuggestion(item.Suggestion)
	if err != nil {
		return err
	}
	const update = `
UPDATE inbox_items
SET status = $2, suggestion = $3, last_error = $4, updated_at = $5
WHERE document_id = $1`
	if _, err := tx.ExecContext(ctx, update, documentID, string(item.Status), suggestionJSON, item.LastError, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (InboxItem, error) {
	var (
		item           InboxItem
		status         string
		suggestionJSON sql.NullString
		lastError      sql.NullString
	)
	err := row.Scan(&item.DocumentID, &item.UserID, &status, &suggestionJSON, &lastError, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return InboxItem{}, ErrNotFound
	}
	if err != nil {
		return InboxItem{}, err
	}
	item.Status = Status(status)
	item.LastError = lastError.String
	if suggestionJSON.Valid && suggestionJSON.String != "" && suggestionJSON.String != "null" {
		var suggestion Suggestion
		if err := json.Unmarshal([]byte(suggestionJSON.String), &suggestion); err != nil {
			return InboxItem{}, fmt.Errorf("decode suggestion: %w", err)
		}
		item.Suggestion = &suggestion
	}
	return item, nil
}

func marshalSuggestion(suggestion *Suggestion) (any, error) {
	if suggestion == nil {
		return nil, nil
	}
	payload, err := json.Marshal(suggestion)
	if err != nil {
		return nil, fmt.Errorf("encode suggestion: %w", err)
	}
	return string(payload), nil
}

var _ Store = (*PGStore)(nil)
