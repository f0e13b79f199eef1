package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrConditionFailed indicates a guarded update matched no rows.
	ErrConditionFailed = errors.New("repository: condition not met")
)
