package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the entity already exists.
	ErrConflict = errors.New("already exists")
	// ErrContention is returned when an optimistic commit kept losing races.
	ErrContention = errors.New("too much contention, retry later")
)
