package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	errs "github.com/regsuite/registry-core/internal/domain/error"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/repository"
)

// maxTransactRetries bounds automatic retries of serialization conflicts
const maxTransactRetries = 3

// txContextKey is a per-store context key; two stores can hold independent
// transactions in the same context
type txContextKey struct{ store string }

// txState is the live transaction and the logical time fixed at its start
type txState struct {
	db     *gorm.DB
	txTime time.Time
}

func (s *Store) txStateFrom(ctx context.Context) *txState {
	state, _ := ctx.Value(s.key).(*txState)
	return state
}

// Transact runs work atomically at SERIALIZABLE isolation. A nested call
// joins the enclosing transaction of this store instead of opening a new one.
// Serialization conflicts are retried with a fresh transaction; business
// errors returned by work are never retried
func (s *Store) Transact(ctx context.Context, work persistence.Work) error {
	if s.txStateFrom(ctx) != nil {
		return work(ctx)
	}

	classifier := repository.NewErrorClassifier()
	var err error
	for attempt := 0; attempt <= maxTransactRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("Retrying transaction after serialization conflict", map[string]any{
				"store":   s.name,
				"attempt": attempt,
			})
		}
		err = s.transactOnce(ctx, work)
		if err == nil || !classifier.IsSerializationError(err) {
			return err
		}
	}
	return err
}

func (s *Store) transactOnce(ctx context.Context, work persistence.Work) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("Failed to begin transaction", map[string]any{
			"store": s.name,
			"error": tx.Error.Error(),
		})
		return errs.NewStoreError(s.name, "begin transaction", tx.Error)
	}
	if err := tx.Exec("SET TRANSACTION ISOLATION LEVEL SERIALIZABLE").Error; err != nil {
		tx.Rollback()
		return errs.NewStoreError(s.name, "set isolation level", err)
	}

	// The transaction time is fixed once so every read and write in this
	// transaction agrees on "now"
	state := &txState{db: tx, txTime: s.clock.Now().UTC()}
	txCtx := context.WithValue(ctx, s.key, state)

	if err := work(txCtx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			s.logger.Error("Rollback failed, suppressing error", map[string]any{
				"store": s.name,
				"error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("Failed to commit transaction", map[string]any{
			"store": s.name,
			"error": err.Error(),
		})
		return errs.NewStoreError(s.name, "commit transaction", err)
	}
	return nil
}

// InTransaction reports whether ctx carries a live transaction of this store
func (s *Store) InTransaction(ctx context.Context) bool {
	return s.txStateFrom(ctx) != nil
}

// AssertInTransaction returns ErrNotInTransaction if ctx carries no live
// transaction of this store
func (s *Store) AssertInTransaction(ctx context.Context) error {
	if !s.InTransaction(ctx) {
		return errs.ErrNotInTransaction
	}
	return nil
}

// TransactionTime returns the logical "now" fixed at transaction start
func (s *Store) TransactionTime(ctx context.Context) (time.Time, error) {
	state := s.txStateFrom(ctx)
	if state == nil {
		return time.Time{}, errs.ErrNotInTransaction
	}
	return state.txTime, nil
}
