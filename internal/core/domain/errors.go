package domain

import "errors"

// Error kinds. Entity specific errors wrap one of these so adapters can
// map them with errors.Is without knowing every sentinel.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
)
