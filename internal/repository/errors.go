package repository

import "errors"

var (
	// ErrNotFound indicates the query returned no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates an insert hit a unique constraint.
	ErrConflict = errors.New("repository: conflict")
)
