package storage

import "errors"

// Common storage errors shared by all implementations.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput indicates malformed input data.
	ErrInvalidInput = errors.New("invalid input")
)
