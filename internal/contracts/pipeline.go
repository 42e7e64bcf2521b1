package contracts

import "time"

// PipelineRun is one row per command invocation. Append-only; finalized
// exactly once by RunRegistry.FinalizeRun.
type PipelineRun struct {
	ID              string
	PipelineType    string
	Trigger         string
	Status          RunStatus
	StartedAt       time.Time
	FinishedAt      *time.Time
	TotalItems      int
	CompletedItems  int
	FailedItems     int
	SummaryMessage  string
}

// PipelineItem is N per run, one per record BatchRunner attempted to save.
// An item row exists iff the underlying game row was committed (or the
// attempt failed and is recorded as such) — see RunRegistry.RecordItem.
type PipelineItem struct {
	ID         string
	RunID      string
	TargetType ItemTargetType
	TargetID   string
	Action     ItemAction
	Status     ItemStatus
	Reason     string
	CreatedAt  time.Time
}

// RunCounters holds a PipelineRun's final totals. Commands build it from
// the batch totals once a run ends and hand it to RunRegistry.FinalizeRun.
type RunCounters struct {
	TotalItems     int64
	CompletedItems int64
	FailedItems    int64
}
