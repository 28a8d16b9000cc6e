package members

import "errors"

var (
	ErrNotFound     = errors.New("member not found")
	ErrInvalidInput = errors.New("invalid input")
)
