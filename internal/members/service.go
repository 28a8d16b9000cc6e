package members

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/telemetry"
)

// Service owns member records and receives routed document fields.
type Service struct {
	Repo MembersRepo
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo MembersRepo) *Service {
	return &Service{Repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers a new family member.
func (s *Service) Create(ctx context.Context, userID, name, relationship string) (Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	m := Member{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Relationship: strings.TrimSpace(relationship),
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		return Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

// Get returns a member by ID.
func (s *Service) Get(ctx context.Context, userID, memberID string) (Member, error) {
	return s.Repo.GetByID(ctx, userID, memberID)
}

// List returns all members for a user.
func (s *Service) List(ctx context.Context, userID string) ([]Member, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// Fields returns the document fields attached to a member.
func (s *Service) Fields(ctx context.Context, userID, memberID string) ([]DocumentField, error) {
	if _, err := s.Repo.GetByID(ctx, userID, memberID); err != nil {
		return nil, err
	}
	return s.Repo.ListFields(ctx, memberID)
}

// AttachDocument stores accepted field values against a member record.
func (s *Service) AttachDocument(ctx context.Context, memberID, documentID, filename string, fields []inbox.ExtractedField) error {
	attached := make([]DocumentField, 0, len(fields))
	now := s.now()
	for _, f := range fields {
		attached = append(attached, DocumentField{
			MemberID:   memberID,
			DocumentID: documentID,
			Filename:   filename,
			Key:        f.Key,
			Value:      f.Value,
			Confidence: f.Confidence,
			Sensitive:  f.IsSensitive,
			AttachedAt: now,
		})
	}
	if err := s.Repo.AttachFields(ctx, memberID, attached); err != nil {
		return fmt.Errorf("attach document fields: %w", err)
	}
	telemetry.Info("members.attach", map[string]any{
		"member_id":   memberID,
		"document_id": documentID,
		"field_count": len(attached),
	})
	return nil
}

var _ inbox.MemberRouter = (*Service)(nil)
