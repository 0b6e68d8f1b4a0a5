package domain

import "errors"

// Errors surfaced by the campaign and sender services. Handlers map them to
// HTTP status codes with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid campaign state")
	ErrConflict           = errors.New("conflict")
	ErrSenderUnavailable  = errors.New("sender unavailable")
	ErrServiceUnavailable = errors.New("messaging service unavailable")
	ErrEmptyList          = errors.New("contact list is empty")
	ErrValidation         = errors.New("validation failed")
)
