package memory

import (
	"context"
	"sync"

	"gamecatalog/internal/persistence"
)

// ExclusionRegistry is an in-process fake of persistence.ExclusionRegistry.
type ExclusionRegistry struct {
	mu      sync.Mutex
	reasons map[int64]string
}

func NewExclusionRegistry() *ExclusionRegistry {
	return &ExclusionRegistry{reasons: make(map[int64]string)}
}

var _ persistence.ExclusionRegistry = (*ExclusionRegistry)(nil)

func (e *ExclusionRegistry) Load(_ context.Context) (map[int64]struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[int64]struct{}, len(e.reasons))
	for id := range e.reasons {
		out[id] = struct{}{}
	}
	return out, nil
}

func (e *ExclusionRegistry) Add(_ context.Context, storeAppID int64, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.reasons[storeAppID]; ok {
		return nil
	}
	e.reasons[storeAppID] = reason
	return nil
}
