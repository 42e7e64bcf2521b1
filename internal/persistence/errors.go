package persistence

import "errors"

// Sentinel errors returned by Repository implementations, grounded on the
// teacher's internal/storage.ErrNotFound/ErrDuplicateKey/ErrInvalidInput.
var (
	// ErrNotFound is returned when a lookup finds no matching row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with a unique
	// constraint the caller did not already check for.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when a caller passes a row missing a
	// required field (e.g. neither StoreID nor MetaID set).
	ErrInvalidInput = errors.New("invalid input")
)
