package analyzer

import (
	"context"
	"strings"
	"sync"

	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
)

// PlaceholderClient is a local stand-in used when no analyzer is configured.
// Submitted jobs complete immediately with a canned suggestion so the upload
// and review flow works end to end in dev.
type PlaceholderClient struct {
	mu   sync.Mutex
	jobs map[JobHandle]string
}

// NewPlaceholderClient constructs a PlaceholderClient.
func NewPlaceholderClient() *PlaceholderClient {
	return &PlaceholderClient{jobs: make(map[JobHandle]string)}
}

// Submit records the job and returns a deterministic handle.
func (p *PlaceholderClient) Submit(ctx context.Context, documentID string, text string) (JobHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := JobHandle("local-" + documentID)
	p.mu.Lock()
	p.jobs[handle] = documentID
	p.mu.Unlock()
	_ = text
	return handle, nil
}

// Fetch returns a completed outcome with a canned suggestion.
func (p *PlaceholderClient) Fetch(ctx context.Context, handle JobHandle) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	p.mu.Lock()
	documentID, ok := p.jobs[handle]
	p.mu.Unlock()
	if !ok {
		return Outcome{Kind: OutcomeFailed, FailureMessage: "unknown job", Retryable: false}, nil
	}
	return Outcome{
		Kind: OutcomeCompleted,
		Suggestion: &inbox.Suggestion{
			DocumentID:        documentID,
			MemberID:          "member-unassigned",
			MemberName:        "Unassigned",
			Confidence:        50,
			SuggestedFilename: "",
			DocumentType:      "document",
			Fields: []inbox.ExtractedField{
				{Key: "preview", Value: "analysis unavailable in local mode", Confidence: 50},
			},
		},
	}, nil
}

// PlaceholderRemote is the matching no-op vault backend for dev.
type PlaceholderRemote struct{}

// ListItems returns an empty listing.
func (PlaceholderRemote) ListItems(ctx context.Context, userID string) ([]inbox.InboxItem, error) {
	_ = userID
	return nil, ctx.Err()
}

// AcceptSuggestion succeeds without side effects.
func (PlaceholderRemote) AcceptSuggestion(ctx context.Context, documentID, memberID string, fields []inbox.ExtractedField) error {
	_, _, _ = documentID, memberID, fields
	return ctx.Err()
}

// DismissItem succeeds without side effects.
func (PlaceholderRemote) DismissItem(ctx context.Context, documentID string) error {
	_ = documentID
	return ctx.Err()
}

// UpdateFilename validates the name and otherwise succeeds.
func (PlaceholderRemote) UpdateFilename(ctx context.Context, documentID, filename string) error {
	_ = documentID
	if strings.TrimSpace(filename) == "" {
		return inbox.ErrInvalidFilename
	}
	return ctx.Err()
}

var (
	_ Client       = (*PlaceholderClient)(nil)
	_ inbox.Remote = PlaceholderRemote{}
)
