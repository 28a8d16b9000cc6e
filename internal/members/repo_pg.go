package members

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements MembersRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts the member; a known ID is left untouched.
func (r *PGRepo) Create(ctx context.Context, m Member) error {
	const query = `
INSERT INTO family_members (id, user_id, name, relationship, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`
	_, err := r.DB.ExecContext(ctx, query, m.ID, m.UserID, m.Name, m.Relationship, m.CreatedAt)
	return err
}

// GetByID returns a member by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, memberID string) (Member, error) {
	const query = `
SELECT id, user_id, name, COALESCE(relationship, ''), created_at
FROM family_members
WHERE id = $1 AND user_id = $2`
	var m Member
	err := r.DB.QueryRowContext(ctx, query, memberID, userID).Scan(
		&m.ID, &m.UserID, &m.Name, &m.Relationship, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, err
	}
	return m, nil
}

// ListByUser returns members for a user ordered by creation time.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Member, error) {
	const query = `
SELECT id, user_id, name, COALESCE(relationship, ''), created_at
FROM family_members
WHERE user_id = $1
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Relationship, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AttachFields appends accepted field values to a member's record in one transaction.
func (r *PGRepo) AttachFields(ctx context.Context, memberID string, fields []DocumentField) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
INSERT INTO member_document_fields (member_id, document_id, filename, field_key, field_value, confidence, sensitive, attached_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, f := range fields {
		if _, err := tx.ExecContext(ctx, query,
			memberID, f.DocumentID, f.Filename, f.Key, f.Value, f.Confidence, f.Sensitive, f.AttachedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListFields returns the fields attached to a member.
func (r *PGRepo) ListFields(ctx context.Context, memberID string) ([]DocumentField, error) {
	const query = `
SELECT member_id, document_id, filename, field_key, field_value, confidence, sensitive, attached_at
FROM member_document_fields
WHERE member_id = $1
ORDER BY attached_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DocumentField{}
	for rows.Next() {
		var f DocumentField
		if err := rows.Scan(&f.MemberID, &f.DocumentID, &f.Filename, &f.Key, &f.Value, &f.Confidence, &f.Sensitive, &f.AttachedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var _ MembersRepo = (*PGRepo)(nil)
