package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrInsufficientData      = errors.New("insufficient data")
	ErrCancelled             = errors.New("analysis cancelled")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
