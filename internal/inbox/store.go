package inbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store holds the reviewable queue. It is the only writer of inbox item
// statuses; all mutations are atomic per document and terminal statuses are
// never overwritten.
type Store interface {
	// Upsert records a new inbox item. Existing items keep their current
	// status and suggestion; registration notifications can repeat.
	Upsert(ctx context.Context, item InboxItem) error
	Get(ctx context.Context, documentID string) (InboxItem, error)
	// ListActive returns items for a user excluding terminal statuses.
	ListActive(ctx context.Context, userID string) ([]InboxItem, error)
	// SetStatus applies a status transition. Returns ErrTerminal when the
	// current status is terminal and ErrInvalidTransition when the state
	// machine does not permit the move.
	SetStatus(ctx context.Context, documentID string, status Status) error
	// SetSuggestion stores a completed analysis result and moves the item to
	// suggested. Returns ErrTerminal when the item is already terminal; the
	// caller must discard the result silently in that case.
	SetSuggestion(ctx context.Context, documentID string, suggestion Suggestion) error
	// SetFailure reverts an analyzing item to uploaded and records a
	// user-visible, per-item error message.
	SetFailure(ctx context.Context, documentID string, message string) error
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusUploaded: {
		StatusAnalyzing: true,
		StatusDismissed: true,
	},
	StatusAnalyzing: {
		StatusSuggested: true,
		StatusUploaded:  true,
		StatusDismissed: true,
	},
	StatusSuggested: {
		StatusAccepted:  true,
		StatusDismissed: true,
	},
	StatusAccepted:  {},
	StatusDismissed: {},
}

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]InboxItem
	now   func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]InboxItem),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Upsert records the item unless it already exists.
func (s *MemoryStore) Upsert(ctx context.Context, item InboxItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.DocumentID]; ok {
		return nil
	}
	if item.Status == "" {
		item.Status = StatusUploaded
	}
	item.UpdatedAt = s.now()
	s.items[item.DocumentID] = item
	return nil
}

// Get returns the item for a document.
func (s *MemoryStore) Get(ctx context.Context, documentID string) (InboxItem, error) {
	if err := ctx.Err(); err != nil {
		return InboxItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[documentID]
	if !ok {
		return InboxItem{}, ErrNotFound
	}
	return item, nil
}

// ListActive returns non-terminal items for a user, newest update first.
func (s *MemoryStore) ListActive(ctx context.Context, userID string) ([]InboxItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]InboxItem, 0)
	for _, item := range s.items {
		if item.UserID != userID || item.Status.Terminal() {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// SetStatus applies a status transition under the store lock.
func (s *MemoryStore) SetStatus(ctx context.Context, documentID string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[documentID]
	if !ok {
		return ErrNotFound
	}
	if item.Status.Terminal() {
		return ErrTerminal
	}
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
	item.UpdatedAt = s.now()
	s.items[documentID] = item
	return nil
}

// SetSuggestion stores the suggestion and moves the item to suggested.
func (s *MemoryStore) SetSuggestion(ctx context.Context, documentID string, suggestion Suggestion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[documentID]
	if !ok {
		return ErrNotFound
	}
	if item.Status.Terminal() {
		return ErrTerminal
	}
	suggestion.DocumentID = documentID
	item.Suggestion = &suggestion
	item.Status = StatusSuggested
	item.LastError = ""
	item.UpdatedAt = s.now()
	s.items[documentID] = item
	return nil
}

// SetFailure reverts the item to uploaded and records the error message.
func (s *MemoryStore) SetFailure(ctx context.Context, documentID string, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[documentID]
	if !ok {
		return ErrNotFound
	}
	if item.Status.Terminal() {
		return ErrTerminal
	}
	item.Status = StatusUploaded
	item.Suggestion = nil
	item.LastError = message
	item.UpdatedAt = s.now()
	s.items[documentID] = item
	return nil
}

var _ Store = (*MemoryStore)(nil)
