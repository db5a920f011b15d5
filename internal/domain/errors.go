package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict indicates a conditional write lost against a newer version.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInUse indicates the entity is still referenced and cannot be removed.
	ErrInUse = errors.New("in use")
)
