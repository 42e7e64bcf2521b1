// Package memory is an in-process fake of runregistry.Store, mirroring
// internal/persistence/memory's single-mutex map-backed pattern.
package memory

import (
	"context"
	"sync"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/runregistry"
)

// Store is an in-memory runregistry.Store.
type Store struct {
	mu    sync.Mutex
	runs  map[string]*contracts.PipelineRun
	items map[string][]*contracts.PipelineItem
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		runs:  make(map[string]*contracts.PipelineRun),
		items: make(map[string][]*contracts.PipelineItem),
	}
}

var _ runregistry.Store = (*Store)(nil)

func (s *Store) InsertRun(_ context.Context, run *contracts.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) UpdateRun(_ context.Context, run *contracts.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return runregistry.ErrRunNotFound
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) GetRun(_ context.Context, runID string) (*contracts.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, runregistry.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *Store) InsertItem(_ context.Context, item *contracts.PipelineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *item
	s.items[item.RunID] = append(s.items[item.RunID], &cp)
	return nil
}

// ItemsFor returns a copy of every item recorded for runID, test-only helper.
func (s *Store) ItemsFor(runID string) []*contracts.PipelineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*contracts.PipelineItem, len(s.items[runID]))
	copy(out, s.items[runID])
	return out
}
