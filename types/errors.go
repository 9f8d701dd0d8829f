package types

import "errors"

// Error kinds shared across services. Handlers map these to HTTP statuses,
// services wrap them with fmt.Errorf("...: %w", err) for detail.
var (
	ErrUnsupportedType  = errors.New("unsupported document type")
	ErrCorruptInput     = errors.New("corrupt input")
	ErrEmptyDocument    = errors.New("empty document")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrBackendTimeout   = errors.New("backend timeout")
	ErrBackendError     = errors.New("backend error")
)
