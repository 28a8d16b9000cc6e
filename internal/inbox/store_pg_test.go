package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newPGStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGStore{DB: db}, mock
}

func itemRows(documentID, userID, status, suggestion, lastError string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"document_id", "user_id", "status", "suggestion", "last_error", "updated_at"})
	rows.AddRow(documentID, userID, status, suggestion, lastError, time.Now().UTC())
	return rows
}

func TestPGUpsertLeavesExistingRows(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectExec("INSERT INTO inbox_items").
		WithArgs("doc-1", "user-1", string(StatusUploaded), nil, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Upsert(context.Background(), InboxItem{DocumentID: "doc-1", UserID: "user-1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSetStatusLocksRowAndUpdates(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM inbox_items WHERE document_id = \\$1 FOR UPDATE").
		WithArgs("doc-1").
		WillReturnRows(itemRows("doc-1", "user-1", string(StatusUploaded), "", ""))
	mock.ExpectExec("UPDATE inbox_items").
		WithArgs("doc-1", string(StatusAnalyzing), nil, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.SetStatus(context.Background(), "doc-1", StatusAnalyzing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSetStatusTerminalRollsBack(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("doc-1").
		WillReturnRows(itemRows("doc-1", "user-1", string(StatusDismissed), "", ""))
	mock.ExpectRollback()

	err := store.SetStatus(context.Background(), "doc-1", StatusAnalyzing)
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSetSuggestionPersistsJSON(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("doc-1").
		WillReturnRows(itemRows("doc-1", "user-1", string(StatusAnalyzing), "", ""))
	mock.ExpectExec("UPDATE inbox_items").
		WithArgs("doc-1", string(StatusSuggested), sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	suggestion := Suggestion{
		MemberID:   "member-1",
		Confidence: 87,
		Fields:     []ExtractedField{{Key: "policyNumber", Value: "P-1", Confidence: 90}},
	}
	if err := store.SetSuggestion(context.Background(), "doc-1", suggestion); err != nil {
		t.Fatalf("SetSuggestion: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGGetDecodesSuggestion(t *testing.T) {
	store, mock := newPGStore(t)

	suggestionJSON := `{"documentId":"doc-1","memberId":"member-1","memberName":"Sarah","confidence":91,"fields":[{"key":"licenseNumber","value":"D1","confidence":95,"isSensitive":true}]}`
	mock.ExpectQuery("FROM inbox_items WHERE document_id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(itemRows("doc-1", "user-1", string(StatusSuggested), suggestionJSON, ""))

	item, err := store.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Suggestion == nil || item.Suggestion.MemberName != "Sarah" {
		t.Fatalf("suggestion not decoded: %+v", item.Suggestion)
	}
	if len(item.Suggestion.Fields) != 1 || !item.Suggestion.Fields[0].IsSensitive {
		t.Fatalf("fields not decoded: %+v", item.Suggestion.Fields)
	}
}

func TestPGGetUnknownDocument(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectQuery("FROM inbox_items WHERE document_id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "user_id", "status", "suggestion", "last_error", "updated_at"}))

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGListActiveFiltersTerminal(t *testing.T) {
	store, mock := newPGStore(t)

	rows := sqlmock.NewRows([]string{"document_id", "user_id", "status", "suggestion", "last_error", "updated_at"}).
		AddRow("doc-2", "user-1", string(StatusSuggested), "", "", time.Now().UTC()).
		AddRow("doc-1", "user-1", string(StatusUploaded), "", "", time.Now().UTC().Add(-time.Minute))
	mock.ExpectQuery("WHERE user_id = \\$1 AND status NOT IN").
		WithArgs("user-1").
		WillReturnRows(rows)

	items, err := store.ListActive(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(items) != 2 || items[0].DocumentID != "doc-2" {
		t.Fatalf("unexpected listing: %+v", items)
	}
}
