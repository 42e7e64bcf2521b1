package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/persistence"
)

// TxManager implements persistence.TxManager against a Pool. Every call to
// WithTx runs fn inside its own pgx transaction, committing on a nil return
// and rolling back otherwise.
type TxManager struct {
	pool *Pool
}

// NewTxManager builds a TxManager.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool}
}

var _ persistence.TxManager = (*TxManager)(nil)

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo persistence.Repository) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, repository{tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return wrapDeadlock(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDeadlock(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// deadlockErr wraps an error observed to carry SQLSTATE 40001, satisfying the
// deadlockError interface internal/persistence checks for with errors.As,
// without persistence importing pgconn directly.
type deadlockErr struct{ cause error }

func (d deadlockErr) Error() string    { return d.cause.Error() }
func (d deadlockErr) Unwrap() error    { return d.cause }
func (d deadlockErr) IsDeadlock() bool { return true }

func wrapDeadlock(err error) error {
	if err == nil || !isDeadlockDetectedError(err) {
		return err
	}
	return deadlockErr{cause: err}
}

// repository is the per-transaction Repository handed to Orchestrator's
// callback; every accessor shares the same *pgx.Tx.
type repository struct {
	tx pgx.Tx
}

func (r repository) Games() persistence.GameStore       { return gameStore{r.tx} }
func (r repository) Details() persistence.DetailStore   { return detailStore{r.tx} }
func (r repository) Releases() persistence.ReleaseStore { return releaseStore{r.tx} }
func (r repository) Companies() persistence.CompanyStore { return companyStore{r.tx} }
func (r repository) Roles() persistence.RoleStore       { return roleStore{r.tx} }
