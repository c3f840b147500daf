package database

import "errors"

// Error taxonomy. Operations wrap these sentinels with context so callers
// can branch on errors.Is while logs keep the full message.
var (
	// ErrValidation marks rejected input: missing required review metadata,
	// an empty explicit section selection, malformed import columns.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks operations referencing a nonexistent review,
	// section, or item id.
	ErrNotFound = errors.New("not found")

	// ErrConstraint marks operations rejected before mutation, such as
	// deleting the last remaining section.
	ErrConstraint = errors.New("constraint violation")
)
