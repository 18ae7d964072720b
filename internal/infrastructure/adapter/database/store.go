package database

import (
	"context"

	"gorm.io/gorm"

	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/repository"
)

// Store is one backing store: a GORM connection, its transaction manager and
// the repositories that operate through it. It implements persistence.Store
type Store struct {
	name   string
	db     *gorm.DB
	clock  coreport.Clock
	logger coreport.Logger

	// key scopes this store's transaction in a context, so a mirror write to
	// the secondary store never accidentally joins a primary transaction
	key txContextKey
}

// NewStore creates a store over an established connection
func NewStore(name string, db *gorm.DB, clock coreport.Clock, logger coreport.Logger) *Store {
	return &Store{
		name:   name,
		db:     db,
		clock:  clock,
		logger: logger,
		key:    txContextKey{store: name},
	}
}

// Name returns the store's label used in logs and reconciliation events
func (s *Store) Name() string {
	return s.name
}

// DB exposes the raw handle for migrations and health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

// dbFrom returns the live transaction carried by ctx, or the base connection
// outside a transaction
func (s *Store) dbFrom(ctx context.Context) *gorm.DB {
	if state := s.txStateFrom(ctx); state != nil {
		return state.db
	}
	return s.db.WithContext(ctx)
}

// Resources returns a resource repository bound to the current transaction
func (s *Store) Resources(ctx context.Context) persistence.ResourceRepository {
	return repository.NewResourceRepository(s.dbFrom(ctx), s.name, s.logger)
}

// Locks returns a lock repository bound to the current transaction
func (s *Store) Locks(ctx context.Context) persistence.LockRepository {
	return repository.NewLockRepository(s.dbFrom(ctx), s.name, s.logger)
}

// Cursors returns a cursor repository bound to the current transaction
func (s *Store) Cursors(ctx context.Context) persistence.CursorRepository {
	return repository.NewCursorRepository(s.dbFrom(ctx), s.name, s.logger)
}
