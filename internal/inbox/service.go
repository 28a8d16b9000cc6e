package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kassie406/familyvault-app-sub005/internal/shared/metrics"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/telemetry"
)

// Remote is the vault backend consumed by the review flow. Transport details
// are owned by the implementation.
type Remote interface {
	ListItems(ctx context.Context, userID string) ([]InboxItem, error)
	AcceptSuggestion(ctx context.Context, documentID, memberID string, fields []ExtractedField) error
	DismissItem(ctx context.Context, documentID string) error
	UpdateFilename(ctx context.Context, documentID, filename string) error
}

// Canceler stops an in-flight analysis for a document. It reports whether an
// outstanding request was actually cancelled.
type Canceler interface {
	Cancel(documentID string) bool
}

// MemberRouter persists accepted fields against a family member record.
type MemberRouter interface {
	AttachDocument(ctx context.Context, memberID, documentID, filename string, fields []ExtractedField) error
}

// DocumentRenamer updates a document's display name. Identity never changes.
type DocumentRenamer interface {
	UpdateDisplayName(ctx context.Context, userID, documentID, displayName string) error
}

// Service implements the accept/dismiss review protocol over the inbox store.
type Service struct {
	Store    Store
	Remote   Remote
	Members  MemberRouter
	Canceler Canceler
	Renamer  DocumentRenamer
	// Navigate is the signal to the navigation layer emitted after a
	// successful accept when the caller requested it.
	Navigate func(memberID string)
}

const maxFilenameLen = 255

// ValidateFilename rejects empty names, path separators, and oversized names
// before any remote call is made.
func ValidateFilename(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(trimmed, "/\\") || strings.Contains(trimmed, "..") {
		return ErrInvalidFilename
	}
	if len(trimmed) > maxFilenameLen {
		return ErrInvalidFilename
	}
	return nil
}

// AcceptRequest carries the reviewer's (possibly edited) accept payload.
type AcceptRequest struct {
	DocumentID     string
	UserID         string
	ChosenFields   []ExtractedField
	ChosenFilename string
	OpenProfile    bool
}

// Accept routes the document to the suggested member. Persistence happens
// before the status transition: if any remote call fails the item stays
// suggested and the caller may retry.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (string, error) {
	item, err := s.Store.Get(ctx, req.DocumentID)
	if err != nil {
		return "", err
	}
	if item.Status.Terminal() {
		return "", ErrTerminal
	}
	if item.Status != StatusSuggested || item.Suggestion == nil {
		return "", ErrNoSuggestion
	}

	suggestion := item.Suggestion
	filename := strings.TrimSpace(req.ChosenFilename)
	if filename == "" {
		filename = suggestion.SuggestedFilename
	}
	if filename != "" {
		if err := ValidateFilename(filename); err != nil {
			return "", err
		}
	}

	fields := req.ChosenFields
	if fields == nil {
		fields = suggestion.Fields
	}

	if filename != "" {
		if err := s.Remote.UpdateFilename(ctx, req.DocumentID, filename); err != nil {
			return "", fmt.Errorf("update filename: %w", err)
		}
		if s.Renamer != nil {
			if err := s.Renamer.UpdateDisplayName(ctx, req.UserID, req.DocumentID, filename); err != nil {
				return "", fmt.Errorf("update display name: %w", err)
			}
		}
	}

	if err := s.Remote.AcceptSuggestion(ctx, req.DocumentID, suggestion.MemberID, fields); err != nil {
		return "", fmt.Errorf("accept suggestion: %w", err)
	}

	if s.Members != nil {
		if err := s.Members.AttachDocument(ctx, suggestion.MemberID, req.DocumentID, filename, fields); err != nil {
			return "", fmt.Errorf("attach document to member: %w", err)
		}
	}

	if err := s.Store.SetStatus(ctx, req.DocumentID, StatusAccepted); err != nil {
		// A concurrent dismiss can land between the persistence calls and the
		// transition; the first terminal transition wins.
		return "", err
	}
	metrics.IncInboxAccepted()
	telemetry.Info("inbox.review", map[string]any{
		"document_id":       req.DocumentID,
		"user_id":           req.UserID,
		"member_id":         suggestion.MemberID,
		"status_transition": "suggested->accepted",
	})

	if req.OpenProfile && s.Navigate != nil {
		s.Navigate(suggestion.MemberID)
	}
	return suggestion.MemberID, nil
}

// Dismiss removes the item from the queue. Available from any non-terminal
// status; an in-flight analysis is cancelled so a late completion cannot
// resurrect the item.
func (s *Service) Dismiss(ctx context.Context, userID, documentID string) error {
	item, err := s.Store.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if item.Status.Terminal() {
		return ErrTerminal
	}

	cancelled := false
	if s.Canceler != nil {
		cancelled = s.Canceler.Cancel(documentID)
	}

	if err := s.Remote.DismissItem(ctx, documentID); err != nil {
		return fmt.Errorf("dismiss item: %w", err)
	}

	if err := s.Store.SetStatus(ctx, documentID, StatusDismissed); err != nil {
		if errors.Is(err, ErrTerminal) {
			return ErrTerminal
		}
		return err
	}
	metrics.IncInboxDismissed()
	telemetry.Info("inbox.review", map[string]any{
		"document_id":        documentID,
		"user_id":            userID,
		"status_transition":  string(item.Status) + "->dismissed",
		"analysis_cancelled": cancelled,
	})
	return nil
}

// Rename updates the document's display filename without touching review
// state. Validation happens before any remote call.
func (s *Service) Rename(ctx context.Context, userID, documentID, filename string) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	if _, err := s.Store.Get(ctx, documentID); err != nil {
		return err
	}
	if err := s.Remote.UpdateFilename(ctx, documentID, strings.TrimSpace(filename)); err != nil {
		return fmt.Errorf("update filename: %w", err)
	}
	if s.Renamer != nil {
		if err := s.Renamer.UpdateDisplayName(ctx, userID, documentID, strings.TrimSpace(filename)); err != nil {
			return fmt.Errorf("update display name: %w", err)
		}
	}
	return nil
}
