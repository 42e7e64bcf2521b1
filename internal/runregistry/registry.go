// Package runregistry implements RunRegistry: bookkeeping for one command
// invocation's lifecycle (PipelineRun) and every record it touched
// (PipelineItem), grounded on the teacher's internal/storage/postgres
// candidate_store.go Insert/GetByID pattern generalized to two related
// tables instead of one.
package runregistry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gamecatalog/internal/contracts"
)

// ErrRunNotFound is returned by GetRun when no PipelineRun exists for an ID.
var ErrRunNotFound = errors.New("run not found")

// Store is the persistence port RunRegistry reads and writes through.
// Implemented by runregistry/postgres and runregistry/memory.
type Store interface {
	InsertRun(ctx context.Context, run *contracts.PipelineRun) error
	UpdateRun(ctx context.Context, run *contracts.PipelineRun) error
	GetRun(ctx context.Context, runID string) (*contracts.PipelineRun, error)
	InsertItem(ctx context.Context, item *contracts.PipelineItem) error
}

// Registry is RunRegistry. BeginRun/FinalizeRun bracket one command
// invocation; RecordItem is called once per record BatchRunner attempts.
type Registry struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewRegistry builds a Registry. now defaults to time.Now, newID to
// uuid.NewString, both overridable in tests.
func NewRegistry(store Store, now func() time.Time, newID func() string) *Registry {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Registry{store: store, now: now, newID: newID}
}

// BeginRun inserts a new PipelineRun row in RunStatusRunning and returns its ID.
func (r *Registry) BeginRun(ctx context.Context, pipelineType, trigger string) (string, error) {
	run := &contracts.PipelineRun{
		ID:           r.newID(),
		PipelineType: pipelineType,
		Trigger:      trigger,
		Status:       contracts.RunStatusRunning,
		StartedAt:    r.now(),
	}
	if err := r.store.InsertRun(ctx, run); err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return run.ID, nil
}

// RecordItem appends one PipelineItem row for a single attempted save.
// Called from inside BatchRunner's save path; failures here are logged by
// the caller and never abort the batch.
func (r *Registry) RecordItem(ctx context.Context, runID string, targetType contracts.ItemTargetType, targetID string, action contracts.ItemAction, status contracts.ItemStatus, reason string) error {
	item := &contracts.PipelineItem{
		ID:         r.newID(),
		RunID:      runID,
		TargetType: targetType,
		TargetID:   targetID,
		Action:     action,
		Status:     status,
		Reason:     reason,
		CreatedAt:  r.now(),
	}
	if err := r.store.InsertItem(ctx, item); err != nil {
		return fmt.Errorf("record item: %w", err)
	}
	return nil
}

// FinalizeRun marks a PipelineRun terminal with its final counters. Calling
// FinalizeRun twice on the same runID is a caller error; the second call
// simply overwrites FinishedAt/counters again since runs are single-writer.
func (r *Registry) FinalizeRun(ctx context.Context, runID string, status contracts.RunStatus, counters contracts.RunCounters, message string) error {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}

	finishedAt := r.now()
	run.Status = status
	run.FinishedAt = &finishedAt
	run.TotalItems = int(counters.TotalItems)
	run.CompletedItems = int(counters.CompletedItems)
	run.FailedItems = int(counters.FailedItems)
	run.SummaryMessage = message

	if err := r.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	return nil
}

// GetRun returns the PipelineRun for runID, or ErrRunNotFound.
func (r *Registry) GetRun(ctx context.Context, runID string) (*contracts.PipelineRun, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}
