package inbox

import "time"

// Status is the lifecycle state of an inbox item.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusAnalyzing Status = "analyzing"
	StatusSuggested Status = "suggested"
	StatusAccepted  Status = "accepted"
	StatusDismissed Status = "dismissed"
)

// Terminal reports whether no further transitions are permitted out of s.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusDismissed
}

// ExtractedField is a single key/value pair extracted by document analysis.
type ExtractedField struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Confidence  int    `json:"confidence"`
	IsSensitive bool   `json:"isSensitive"`
}

// Suggestion is the analyzer's proposed routing and field set for a document.
// It is immutable once created; re-analysis replaces it wholesale.
type Suggestion struct {
	DocumentID        string           `json:"documentId"`
	MemberID          string           `json:"memberId"`
	MemberName        string           `json:"memberName"`
	Confidence        int              `json:"confidence"`
	SuggestedFilename string           `json:"suggestedFilename,omitempty"`
	DocumentType      string           `json:"documentType,omitempty"`
	Fields            []ExtractedField `json:"fields"`
}

// InboxItem is a document under review. Suggestion is present iff the status
// is suggested or accepted. LastError holds a dismissable per-item error
// message for transient analysis failures.
type InboxItem struct {
	DocumentID string
	UserID     string
	Status     Status
	Suggestion *Suggestion
	LastError  string
	UpdatedAt  time.Time
}
