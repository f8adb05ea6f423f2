package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blockdocs/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionManager implements the TransactionManager interface
type TransactionManager struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewTransactionManager creates a new transaction manager.
// Each transaction is bounded by timeout (0 = only the caller's deadline applies).
func NewTransactionManager(pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) repositories.TransactionManager {
	return &TransactionManager{pool: pool, timeout: timeout, logger: logger}
}

// ExecTx executes a function within a transaction
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return tm.exec(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// ExecReadTx executes a function within a read-only snapshot transaction
func (tm *TransactionManager) ExecReadTx(ctx context.Context, fn repositories.TxFn) error {
	return tm.exec(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (tm *TransactionManager) exec(ctx context.Context, opts pgx.TxOptions, fn repositories.TxFn) error {
	// Nested call: join the outer transaction
	if repositories.InTx(ctx) {
		return fn(ctx)
	}

	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	tx, err := tm.pool.BeginTx(ctx, opts)
	if err != nil {
		return WrapDBError("begin transaction", err)
	}

	// Defer rollback - safe even if commit succeeds
	defer func() {
		// Fresh context: the request context may already be cancelled
		rbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			tm.logger.Warn("rollback failed", "error", err)
		}
	}()

	// Store transaction in context so repositories can access it
	txCtx := repositories.SetTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return fmt.Errorf("%w (transaction aborted: %v)", err, ctxErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return WrapDBError("commit transaction", err)
	}

	return nil
}
