package analyzer

import (
	"context"

	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
)

// JobHandle identifies a submitted analysis job on the remote service.
type JobHandle string

// OutcomeKind discriminates the three possible fetch results.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeCompleted
	OutcomeFailed
)

// Outcome is the tagged result of fetching an analysis job. Suggestion is set
// only when Kind is OutcomeCompleted; FailureMessage and Retryable only when
// Kind is OutcomeFailed.
type Outcome struct {
	Kind           OutcomeKind
	Suggestion     *inbox.Suggestion
	FailureMessage string
	Retryable      bool
}

// Client is the remote document analysis service.
type Client interface {
	// Submit begins analysis of the extracted document text and returns a
	// handle used to fetch the result.
	Submit(ctx context.Context, documentID string, text string) (JobHandle, error)
	// Fetch retrieves the current outcome for a job.
	Fetch(ctx context.Context, handle JobHandle) (Outcome, error)
}
