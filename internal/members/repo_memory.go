package members

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of MembersRepo.
type MemoryRepo struct {
	mu      sync.RWMutex
	members map[string][]Member        // userID -> members
	fields  map[string][]DocumentField // memberID -> attached fields
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		members: make(map[string][]Member),
		fields:  make(map[string][]DocumentField),
	}
}

// Create stores the member unless its ID is already known.
func (r *MemoryRepo) Create(ctx context.Context, m Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members[m.UserID] {
		if existing.ID == m.ID {
			return nil
		}
	}
	r.members[m.UserID] = append(r.members[m.UserID], m)
	return nil
}

// GetByID returns a member by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, memberID string) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members[userID] {
		if m.ID == memberID {
			return m, nil
		}
	}
	return Member{}, ErrNotFound
}

// ListByUser returns members for a user ordered by creation time.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Member, len(r.members[userID]))
	copy(out, r.members[userID])
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AttachFields appends accepted field values to a member's record.
func (r *MemoryRepo) AttachFields(ctx context.Context, memberID string, fields []DocumentField) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[memberID] = append(r.fields[memberID], fields...)
	return nil
}

// ListFields returns the fields attached to a member.
func (r *MemoryRepo) ListFields(ctx context.Context, memberID string) ([]DocumentField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DocumentField, len(r.fields[memberID]))
	copy(out, r.fields[memberID])
	return out, nil
}

var _ MembersRepo = (*MemoryRepo)(nil)
