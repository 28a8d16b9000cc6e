package members

import "time"

// Member is a person in the family vault that documents can be routed to.
type Member struct {
	ID           string
	UserID       string
	Name         string
	Relationship string
	CreatedAt    time.Time
}

// DocumentField is one accepted field value stored on a member's record.
type DocumentField struct {
	MemberID   string
	DocumentID string
	Filename   string
	Key        string
	Value      string
	Confidence int
	Sensitive  bool
	AttachedAt time.Time
}
