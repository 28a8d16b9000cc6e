package inbox

import (
	"context"
	"errors"
	"testing"
)

type fakeRemote struct {
	acceptErr   error
	dismissErr  error
	filenameErr error

	accepted  []string
	dismissed []string
	renamed   map[string]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{renamed: make(map[string]string)}
}

func (f *fakeRemote) ListItems(ctx context.Context, userID string) ([]InboxItem, error) {
	return nil, nil
}

func (f *fakeRemote) AcceptSuggestion(ctx context.Context, documentID, memberID string, fields []ExtractedField) error {
	if f.acceptErr != nil {
		return f.acceptErr
	}
	f.accepted = append(f.accepted, documentID)
	return nil
}

func (f *fakeRemote) DismissItem(ctx context.Context, documentID string) error {
	if f.dismissErr != nil {
		return f.dismissErr
	}
	f.dismissed = append(f.dismissed, documentID)
	return nil
}

func (f *fakeRemote) UpdateFilename(ctx context.Context, documentID, filename string) error {
	if f.filenameErr != nil {
		return f.filenameErr
	}
	f.renamed[documentID] = filename
	return nil
}

type fakeCanceler struct {
	cancelled []string
	result    bool
}

func (f *fakeCanceler) Cancel(documentID string) bool {
	f.cancelled = append(f.cancelled, documentID)
	return f.result
}

type fakeRouter struct {
	attached map[string][]ExtractedField
	err      error
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{attached: make(map[string][]ExtractedField)}
}

func (f *fakeRouter) AttachDocument(ctx context.Context, memberID, documentID, filename string, fields []ExtractedField) error {
	if f.err != nil {
		return f.err
	}
	f.attached[memberID] = fields
	return nil
}

func suggestedStore(t *testing.T, documentID string) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	seedItem(t, s, documentID, "user-1", StatusAnalyzing)
	err := s.SetSuggestion(context.Background(), documentID, Suggestion{
		MemberID:          "member-7",
		MemberName:        "Sarah",
		Confidence:        91,
		SuggestedFilename: "Drivers License - Sarah.pdf",
		Fields: []ExtractedField{
			{Key: "licenseNumber", Value: "D123456", Confidence: 95, IsSensitive: true},
			{Key: "expiration", Value: "2030-01-01", Confidence: 88},
		},
	})
	if err != nil {
		t.Fatalf("set suggestion: %v", err)
	}
	return s
}

func TestAcceptAsSuggested(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	remote := newFakeRemote()
	router := newFakeRouter()
	var navigated string
	svc := &Service{
		Store:    store,
		Remote:   remote,
		Members:  router,
		Navigate: func(memberID string) { navigated = memberID },
	}

	memberID, err := svc.Accept(context.Background(), AcceptRequest{
		DocumentID:  "doc-1",
		UserID:      "user-1",
		OpenProfile: true,
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if memberID != "member-7" {
		t.Fatalf("expected member-7, got %s", memberID)
	}

	item, _ := store.Get(context.Background(), "doc-1")
	if item.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", item.Status)
	}
	if len(remote.accepted) != 1 {
		t.Fatalf("expected one remote accept, got %d", len(remote.accepted))
	}
	if remote.renamed["doc-1"] != "Drivers License - Sarah.pdf" {
		t.Fatalf("expected suggested filename applied, got %q", remote.renamed["doc-1"])
	}
	if got := router.attached["member-7"]; len(got) != 2 {
		t.Fatalf("expected both fields attached, got %d", len(got))
	}
	if navigated != "member-7" {
		t.Fatalf("expected navigation to member-7, got %q", navigated)
	}
}

func TestAcceptWithEditedFieldsAndFilename(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	remote := newFakeRemote()
	router := newFakeRouter()
	svc := &Service{Store: store, Remote: remote, Members: router}

	edited := []ExtractedField{{Key: "licenseNumber", Value: "D999999", IsSensitive: true}}
	_, err := svc.Accept(context.Background(), AcceptRequest{
		DocumentID:     "doc-1",
		UserID:         "user-1",
		ChosenFields:   edited,
		ChosenFilename: "License Sarah 2030.pdf",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if remote.renamed["doc-1"] != "License Sarah 2030.pdf" {
		t.Fatalf("expected edited filename, got %q", remote.renamed["doc-1"])
	}
	if got := router.attached["member-7"]; len(got) != 1 || got[0].Value != "D999999" {
		t.Fatalf("expected edited fields to win, got %+v", got)
	}
}

func TestAcceptNotOptimistic(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	remote := newFakeRemote()
	remote.acceptErr = errors.New("remote down")
	svc := &Service{Store: store, Remote: remote}

	if _, err := svc.Accept(context.Background(), AcceptRequest{DocumentID: "doc-1", UserID: "user-1"}); err == nil {
		t.Fatal("expected error")
	}

	// Persistence failed, so the item must remain suggested and retryable.
	item, _ := store.Get(context.Background(), "doc-1")
	if item.Status != StatusSuggested {
		t.Fatalf("expected suggested after failed accept, got %s", item.Status)
	}
}

func TestAcceptWithoutSuggestion(t *testing.T) {
	store := NewMemoryStore()
	seedItem(t, store, "doc-1", "user-1", StatusUploaded)
	svc := &Service{Store: store, Remote: newFakeRemote()}

	if _, err := svc.Accept(context.Background(), AcceptRequest{DocumentID: "doc-1", UserID: "user-1"}); !errors.Is(err, ErrNoSuggestion) {
		t.Fatalf("expected ErrNoSuggestion, got %v", err)
	}
}

func TestAcceptTerminalItem(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	mustSetStatus(t, store, "doc-1", StatusDismissed)
	svc := &Service{Store: store, Remote: newFakeRemote()}

	if _, err := svc.Accept(context.Background(), AcceptRequest{DocumentID: "doc-1", UserID: "user-1"}); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestAcceptRejectsInvalidFilename(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	remote := newFakeRemote()
	svc := &Service{Store: store, Remote: remote}

	for _, bad := range []string{"../../etc/passwd", "a/b.pdf", "name\\evil"} {
		if _, err := svc.Accept(context.Background(), AcceptRequest{
			DocumentID:     "doc-1",
			UserID:         "user-1",
			ChosenFilename: bad,
		}); !errors.Is(err, ErrInvalidFilename) {
			t.Fatalf("%q: expected ErrInvalidFilename, got %v", bad, err)
		}
	}
	if len(remote.renamed) != 0 {
		t.Fatal("validation must happen before any remote call")
	}
}

func TestDismissCancelsInFlightAnalysis(t *testing.T) {
	store := NewMemoryStore()
	seedItem(t, store, "doc-1", "user-1", StatusAnalyzing)
	remote := newFakeRemote()
	canceler := &fakeCanceler{result: true}
	svc := &Service{Store: store, Remote: remote, Canceler: canceler}

	if err := svc.Dismiss(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if len(canceler.cancelled) != 1 || canceler.cancelled[0] != "doc-1" {
		t.Fatalf("expected cancel for doc-1, got %+v", canceler.cancelled)
	}
	item, _ := store.Get(context.Background(), "doc-1")
	if item.Status != StatusDismissed {
		t.Fatalf("expected dismissed, got %s", item.Status)
	}
}

func TestDismissAlreadyTerminal(t *testing.T) {
	store := NewMemoryStore()
	seedItem(t, store, "doc-1", "user-1", StatusDismissed)
	svc := &Service{Store: store, Remote: newFakeRemote()}

	if err := svc.Dismiss(context.Background(), "user-1", "doc-1"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestDismissRemoteFailureKeepsItem(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	remote := newFakeRemote()
	remote.dismissErr = errors.New("remote down")
	svc := &Service{Store: store, Remote: remote}

	if err := svc.Dismiss(context.Background(), "user-1", "doc-1"); err == nil {
		t.Fatal("expected error")
	}
	item, _ := store.Get(context.Background(), "doc-1")
	if item.Status != StatusSuggested {
		t.Fatalf("expected item unchanged, got %s", item.Status)
	}
}

func TestRenameValidation(t *testing.T) {
	store := suggestedStore(t, "doc-1")
	remote := newFakeRemote()
	svc := &Service{Store: store, Remote: remote}

	if err := svc.Rename(context.Background(), "user-1", "doc-1", "  "); !errors.Is(err, ErrInvalidFilename) {
		t.Fatalf("expected ErrInvalidFilename for blank, got %v", err)
	}
	if err := svc.Rename(context.Background(), "user-1", "doc-1", "Tax Return 2025.pdf"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if remote.renamed["doc-1"] != "Tax Return 2025.pdf" {
		t.Fatalf("expected rename persisted, got %q", remote.renamed["doc-1"])
	}
}
