// Package postgres implements runregistry.Store against PostgreSQL,
// grounded on the teacher's internal/storage/postgres/candidate_store.go
// Insert/GetByID pattern generalized to the pipeline_runs/pipeline_items
// tables in internal/persistence/migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence/postgres"
	"gamecatalog/internal/runregistry"
)

// Store implements runregistry.Store against PostgreSQL.
type Store struct {
	pool *postgres.Pool
}

// NewStore builds a Store.
func NewStore(pool *postgres.Pool) *Store {
	return &Store{pool: pool}
}

var _ runregistry.Store = (*Store)(nil)

func (s *Store) InsertRun(ctx context.Context, run *contracts.PipelineRun) error {
	const query = `
		INSERT INTO pipeline_runs (id, pipeline_type, trigger, status, started_at, total_items, completed_items, failed_items, summary_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.PipelineType, run.Trigger, string(run.Status), run.StartedAt,
		run.TotalItems, run.CompletedItems, run.FailedItems, run.SummaryMessage,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

func (s *Store) UpdateRun(ctx context.Context, run *contracts.PipelineRun) error {
	const query = `
		UPDATE pipeline_runs
		SET status = $2, finished_at = $3, total_items = $4, completed_items = $5, failed_items = $6, summary_message = $7
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.FinishedAt, run.TotalItems, run.CompletedItems, run.FailedItems, run.SummaryMessage,
	)
	if err != nil {
		return fmt.Errorf("update pipeline run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return runregistry.ErrRunNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*contracts.PipelineRun, error) {
	const query = `
		SELECT id, pipeline_type, trigger, status, started_at, finished_at, total_items, completed_items, failed_items, summary_message
		FROM pipeline_runs
		WHERE id = $1
	`
	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, runregistry.ErrRunNotFound
		}
		return nil, fmt.Errorf("get pipeline run: %w", err)
	}
	return run, nil
}

func (s *Store) InsertItem(ctx context.Context, item *contracts.PipelineItem) error {
	const query = `
		INSERT INTO pipeline_items (id, run_id, target_type, target_id, action, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		item.ID, item.RunID, string(item.TargetType), item.TargetID, string(item.Action), string(item.Status), item.Reason, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline item: %w", err)
	}
	return nil
}

func scanRun(row pgx.Row) (*contracts.PipelineRun, error) {
	var run contracts.PipelineRun
	var status string
	if err := row.Scan(
		&run.ID, &run.PipelineType, &run.Trigger, &status, &run.StartedAt, &run.FinishedAt,
		&run.TotalItems, &run.CompletedItems, &run.FailedItems, &run.SummaryMessage,
	); err != nil {
		return nil, err
	}
	run.Status = contracts.RunStatus(status)
	return &run, nil
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
