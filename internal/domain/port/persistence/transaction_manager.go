package persistence

import (
	"context"
	"time"
)

// Work is a unit of work executed inside a transaction. The context passed to
// it carries the transaction; repositories obtained through that context are
// bound to it
type Work func(ctx context.Context) error

// TransactionManager executes units of work atomically against one backing
// store. All reads and writes inside one Transact call observe a single
// consistent snapshot and either all commit or none do
type TransactionManager interface {
	// Transact runs work atomically. Invoking Transact from inside a
	// transaction joins the enclosing transaction instead of starting a new one
	Transact(ctx context.Context, work Work) error

	// InTransaction reports whether ctx is currently inside a transaction.
	// It never fails
	InTransaction(ctx context.Context) bool

	// AssertInTransaction returns ErrNotInTransaction if ctx is not inside a
	// transaction. Violations are programmer errors and must propagate
	AssertInTransaction(ctx context.Context) error

	// TransactionTime returns the logical "now" fixed at transaction start, so
	// every read and write inside one transaction agrees on the time. Returns
	// ErrNotInTransaction outside a transaction
	TransactionTime(ctx context.Context) (time.Time, error)
}
