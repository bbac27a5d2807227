package domain

import "errors"

// Domain errors as sentinel values
var (
	// Entity errors
	ErrEntityNotFound  = errors.New("entity not found")
	ErrEmptyEntityID   = errors.New("entity id cannot be empty")
	ErrEmptyCollection = errors.New("collection name cannot be empty")

	// Codec errors
	ErrEncodeEntity = errors.New("failed to encode entity")
	ErrDecodeEntity = errors.New("failed to decode entity")

	// Baseline errors
	ErrNoHead = errors.New("no baseline captured")
)
