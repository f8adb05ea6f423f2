package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes fn within a single transaction.
	// The transaction is committed when fn returns nil and rolled back otherwise,
	// including when the transaction deadline expires.
	ExecTx(ctx context.Context, fn TxFn) error

	// ExecReadTx executes fn in a read-only REPEATABLE READ transaction, so every
	// query fn issues sees the same snapshot. Queries inside fn must run sequentially.
	ExecReadTx(ctx context.Context, fn TxFn) error
}
