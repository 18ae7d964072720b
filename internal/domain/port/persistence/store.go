package persistence

import (
	"context"
	"time"

	"github.com/regsuite/registry-core/internal/domain/entity"
)

// ResourceRepository persists versioned registry resources
type ResourceRepository interface {
	// GetByRepoID returns the resource with the given repository id, or
	// ErrResourceNotFound
	GetByRepoID(ctx context.Context, repoID string) (*entity.Resource, error)

	// GetDomainByName returns the domain with the given fully-qualified name,
	// deleted or not, or ErrResourceNotFound. Callers decide whether a
	// soft-deleted result counts as existing at their reference time
	GetDomainByName(ctx context.Context, domainName string) (*entity.Resource, error)

	// Save inserts or updates the resource
	Save(ctx context.Context, resource *entity.Resource) error

	// ListRepoIDs pages repository ids of the given type in ascending order,
	// returning up to limit ids strictly after afterRepoID (empty for the
	// first page)
	ListRepoIDs(ctx context.Context, typ entity.ResourceType, afterRepoID string, limit int) ([]string, error)

	// ListResaveCandidateRepoIDs pages repository ids of resources whose
	// derived state can have changed as of asOf (currently: an expired pending
	// transfer), same paging contract as ListRepoIDs
	ListResaveCandidateRepoIDs(ctx context.Context, typ entity.ResourceType, asOf time.Time, afterRepoID string, limit int) ([]string, error)
}

// LockRepository persists lock and unlock request records
type LockRepository interface {
	// Create persists a new lock record and assigns its revision id
	Create(ctx context.Context, lock *entity.Lock) error

	// Update persists changes to an existing lock record
	Update(ctx context.Context, lock *entity.Lock) error

	// GetByVerificationCode returns the lock identified by the code, or
	// ErrUnknownVerificationCode
	GetByVerificationCode(ctx context.Context, code string) (*entity.Lock, error)

	// GetMostRecent returns the newest lock record of the given action for the
	// resource, or ErrUnknownVerificationCode if none exists
	GetMostRecent(ctx context.Context, repoID string, action entity.LockAction) (*entity.Lock, error)

	// VerificationCodeExists reports whether any lock ever created used the code
	VerificationCodeExists(ctx context.Context, code string) (bool, error)

	// ListVerifiedByRegistrarID returns verified lock records for a registrar,
	// newest first
	ListVerifiedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error)

	// ListCurrentlyLockedByRegistrarID returns the verified LOCK records of a
	// registrar whose domains have not been verifiably unlocked since, newest
	// first. A domain locked and later unlocked does not appear
	ListCurrentlyLockedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error)
}

// CursorRepository is a pure checkpoint store for resumable jobs
type CursorRepository interface {
	// Get returns the cursor for the key, or ErrCursorNotFound if never set
	Get(ctx context.Context, id entity.CursorID) (*entity.Cursor, error)

	// Set upserts the (type, scope) row to the given watermark. An empty scope
	// is normalized to the global sentinel
	Set(ctx context.Context, typ entity.CursorType, scope string, cursorTime, now time.Time) error
}

// RepositoryProvider hands out repositories bound to the transaction carried
// by ctx, or to the base connection outside a transaction
type RepositoryProvider interface {
	Resources(ctx context.Context) ResourceRepository
	Locks(ctx context.Context) LockRepository
	Cursors(ctx context.Context) CursorRepository
}

// Store is one backing store: a transaction manager plus the repositories that
// operate through it. The dual-store coordinator wraps two of these
type Store interface {
	TransactionManager
	RepositoryProvider
}
