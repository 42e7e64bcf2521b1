package persistence

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"gamecatalog/internal/contracts"
)

// ErrStoreAppNotFound / ErrMetaGameNotFound classify a record whose source
// has stopped reporting an ID that DB history expects to still exist
// (e.g. a delisted Store app). Normalizer and SourceClient may wrap these.
var (
	ErrStoreAppNotFound = errors.New("store app not found")
	ErrMetaGameNotFound = errors.New("meta game not found")
)

// deadlockError is implemented by the postgres adapter to signal SQLSTATE
// 40001 without persistence importing pgconn directly.
type deadlockError interface {
	IsDeadlock() bool
}

func isDeadlock(err error) bool {
	var de deadlockError
	return errors.As(err, &de) && de.IsDeadlock()
}

func deadlockBackoff(attempt int) time.Duration {
	base := time.Duration(10+attempt*15) * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(5 * time.Millisecond)))
	return base + jitter
}

// classifyFailure maps a Save error to the taxonomy spec.md §4.6 reports in
// a batch summary. Order matters: more specific sentinels are checked before
// the generic duplicate/deadlock/validation buckets.
func classifyFailure(err error) contracts.SaveFailureReason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreAppNotFound):
		return contracts.SaveFailureStoreAppNotFound
	case errors.Is(err, ErrMetaGameNotFound):
		return contracts.SaveFailureMetaGameNotFound
	case errors.Is(err, ErrInvalidInput):
		return contracts.SaveFailureValidationFailed
	case errors.Is(err, ErrDuplicateKey):
		return contracts.SaveFailureDuplicateConstraint
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return contracts.SaveFailureUnknown
	case isDeadlock(err):
		return contracts.SaveFailureDuplicateConstraint
	default:
		return contracts.SaveFailureUnknown
	}
}
