package inbox

import "sync"

// maskedPlaceholder has a fixed shape regardless of the underlying value so
// the rendered length leaks nothing about the value itself.
const maskedPlaceholder = "••••••••"

// Present returns the display value for an extracted field. Sensitive fields
// are masked unless the reviewer has revealed them for this session.
func Present(field ExtractedField, revealed bool) string {
	if field.IsSensitive && !revealed {
		return maskedPlaceholder
	}
	return field.Value
}

// RevealState tracks per-item, per-field reveal toggles for a single review
// session. It is never persisted; reopening the review surface starts from a
// fresh state with everything masked again.
type RevealState struct {
	mu       sync.Mutex
	revealed map[string]bool
}

// NewRevealState constructs an empty RevealState.
func NewRevealState() *RevealState {
	return &RevealState{revealed: make(map[string]bool)}
}

// Toggle flips the reveal flag for a field and returns the new value.
func (r *RevealState) Toggle(documentID, fieldKey string) bool {
	key := documentID + "|" + fieldKey
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed[key] = !r.revealed[key]
	return r.revealed[key]
}

// Revealed reports whether a field is currently revealed.
func (r *RevealState) Revealed(documentID, fieldKey string) bool {
	key := documentID + "|" + fieldKey
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revealed[key]
}
