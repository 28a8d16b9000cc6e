package members

import "context"

// MembersRepo stores family members and the document fields attached to them.
type MembersRepo interface {
	Create(ctx context.Context, m Member) error
	GetByID(ctx context.Context, userID, memberID string) (Member, error)
	ListByUser(ctx context.Context, userID string) ([]Member, error)
	AttachFields(ctx context.Context, memberID string, fields []DocumentField) error
	ListFields(ctx context.Context, memberID string) ([]DocumentField, error)
}
