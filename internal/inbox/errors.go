package inbox

import "errors"

var (
	ErrNotFound          = errors.New("inbox item not found")
	ErrTerminal          = errors.New("inbox item is terminal")
	ErrNoSuggestion      = errors.New("inbox item has no suggestion")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidFilename   = errors.New("invalid filename")
)

const (
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodePersistence = "PERSISTENCE_ERROR"
	ErrorCodeTerminal    = "ALREADY_TERMINAL"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)
