package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
)

// DefaultCacheTTL bounds staleness of the read-through resource caches
const DefaultCacheTTL = 5 * time.Minute

// DualStore coordinates an authoritative store and a legacy secondary store
// during a live migration. Every transaction runs against the authoritative
// store and its failures propagate; writes are mirrored to the secondary store
// best-effort, and reads fall back to the secondary store on a definitive
// authoritative not-found. Secondary failures are only ever observable through
// logs and metrics. DualStore implements persistence.Store, so callers cannot
// tell it from a single store
type DualStore struct {
	primary   persistence.Store
	secondary persistence.Store
	logger    coreport.Logger
	metrics   coreport.Metrics

	primaryCache   *resourceCache
	secondaryCache *resourceCache
}

// NewDualStore creates a coordinator over the two stores. cacheTTL <= 0
// disables the read-through caches
func NewDualStore(primary, secondary persistence.Store, clock coreport.Clock, logger coreport.Logger, metrics coreport.Metrics, cacheTTL time.Duration) *DualStore {
	if metrics == nil {
		metrics = coreport.NoopMetrics{}
	}
	return &DualStore{
		primary:        primary,
		secondary:      secondary,
		logger:         logger,
		metrics:        metrics,
		primaryCache:   newResourceCache(cacheTTL, clock),
		secondaryCache: newResourceCache(cacheTTL, clock),
	}
}

// Transact runs work atomically against the authoritative store
func (d *DualStore) Transact(ctx context.Context, work persistence.Work) error {
	return d.primary.Transact(ctx, work)
}

// InTransaction reports whether ctx is inside an authoritative-store transaction
func (d *DualStore) InTransaction(ctx context.Context) bool {
	return d.primary.InTransaction(ctx)
}

// AssertInTransaction fails unless ctx is inside an authoritative-store transaction
func (d *DualStore) AssertInTransaction(ctx context.Context) error {
	return d.primary.AssertInTransaction(ctx)
}

// TransactionTime returns the authoritative transaction's fixed logical time
func (d *DualStore) TransactionTime(ctx context.Context) (time.Time, error) {
	return d.primary.TransactionTime(ctx)
}

// Resources returns the dual resource repository
func (d *DualStore) Resources(ctx context.Context) persistence.ResourceRepository {
	return &dualResourceRepository{d: d}
}

// Locks returns the dual lock repository
func (d *DualStore) Locks(ctx context.Context) persistence.LockRepository {
	return &dualLockRepository{d: d}
}

// Cursors returns the dual cursor repository
func (d *DualStore) Cursors(ctx context.Context) persistence.CursorRepository {
	return &dualCursorRepository{d: d}
}

// mirror attempts a best-effort write against the secondary store in its own
// transaction. It recovers every failure, records it as a reconciliation
// event and never delays or fails the caller. operation is a fixed per-method
// name suitable as a metric label; identities go in fields
func (d *DualStore) mirror(ctx context.Context, operation string, fields map[string]any, work persistence.Work) {
	logFields := func(extra map[string]any) map[string]any {
		out := map[string]any{"operation": operation}
		for k, v := range fields {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordMirrorFailure(operation)
			d.logger.Error("Reconciliation event: panic during mirror write",
				logFields(map[string]any{"panic": fmt.Sprint(r)}))
		}
	}()
	if err := d.secondary.Transact(ctx, work); err != nil {
		d.metrics.RecordMirrorFailure(operation)
		d.logger.Warn("Reconciliation event: mirror write to secondary store failed",
			logFields(map[string]any{"error": err.Error()}))
	}
}

// fallbackRead serves a read from the secondary store after a definitive
// authoritative not-found, signalling drift that needs backfill. It never
// fails the caller: any secondary error degrades to the authoritative result
func fallbackRead[T any](d *DualStore, kind, key string, notFound error, primaryErr error, read func() (T, error)) (T, error) {
	var zero T
	if primaryErr == nil || !errors.Is(primaryErr, notFound) {
		return zero, primaryErr
	}

	value, err := func() (ret T, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				retErr = fmt.Errorf("panic reading secondary store: %v", r)
			}
		}()
		return read()
	}()
	if err != nil {
		if !errors.Is(err, notFound) {
			d.logger.Warn("Secondary store read failed during fallback", map[string]any{
				"kind":  kind,
				"key":   key,
				"error": err.Error(),
			})
		}
		return zero, primaryErr
	}

	d.metrics.RecordSecondaryRead(kind)
	d.logger.Warn("Secondary-store read used", map[string]any{
		"kind": kind,
		"key":  key,
	})
	return value, nil
}

// dualResourceRepository mirrors resource writes and falls back on reads
type dualResourceRepository struct {
	d *DualStore
}

func (r *dualResourceRepository) GetByRepoID(ctx context.Context, repoID string) (*entity.Resource, error) {
	if cached, ok := r.d.primaryCache.Get(repoID); ok {
		return cached, nil
	}
	// The generation is captured before the store read; a write that lands
	// in between invalidates the key and the Put below is dropped
	primaryGen := r.d.primaryCache.Generation(repoID)
	res, err := r.d.primary.Resources(ctx).GetByRepoID(ctx, repoID)
	if err == nil {
		r.d.primaryCache.Put(res, primaryGen)
		return res, nil
	}
	secondaryGen := r.d.secondaryCache.Generation(repoID)
	res, err = fallbackRead(r.d, "resource", repoID, errs.ErrResourceNotFound, err, func() (*entity.Resource, error) {
		if cached, ok := r.d.secondaryCache.Get(repoID); ok {
			return cached, nil
		}
		return r.d.secondary.Resources(ctx).GetByRepoID(ctx, repoID)
	})
	if err == nil {
		r.d.secondaryCache.Put(res, secondaryGen)
	}
	return res, err
}

func (r *dualResourceRepository) GetDomainByName(ctx context.Context, domainName string) (*entity.Resource, error) {
	res, err := r.d.primary.Resources(ctx).GetDomainByName(ctx, domainName)
	if err == nil {
		return res, nil
	}
	return fallbackRead(r.d, "domain", domainName, errs.ErrResourceNotFound, err, func() (*entity.Resource, error) {
		return r.d.secondary.Resources(ctx).GetDomainByName(ctx, domainName)
	})
}

func (r *dualResourceRepository) Save(ctx context.Context, resource *entity.Resource) error {
	if err := r.d.primary.AssertInTransaction(ctx); err != nil {
		return err
	}
	if err := r.d.primary.Resources(ctx).Save(ctx, resource); err != nil {
		return err
	}
	r.d.primaryCache.Invalidate(resource.RepoID)
	r.d.secondaryCache.Invalidate(resource.RepoID)
	mirrored := resource.Clone()
	r.d.mirror(ctx, "resource.save", map[string]any{"repo_id": resource.RepoID}, func(mctx context.Context) error {
		return r.d.secondary.Resources(mctx).Save(mctx, mirrored)
	})
	return nil
}

func (r *dualResourceRepository) ListRepoIDs(ctx context.Context, typ entity.ResourceType, afterRepoID string, limit int) ([]string, error) {
	return r.d.primary.Resources(ctx).ListRepoIDs(ctx, typ, afterRepoID, limit)
}

func (r *dualResourceRepository) ListResaveCandidateRepoIDs(ctx context.Context, typ entity.ResourceType, asOf time.Time, afterRepoID string, limit int) ([]string, error) {
	return r.d.primary.Resources(ctx).ListResaveCandidateRepoIDs(ctx, typ, asOf, afterRepoID, limit)
}

// dualLockRepository mirrors lock writes; code-uniqueness checks consult both
// stores so codes issued before the migration stay unique
type dualLockRepository struct {
	d *DualStore
}

func (r *dualLockRepository) Create(ctx context.Context, lock *entity.Lock) error {
	if err := r.d.primary.AssertInTransaction(ctx); err != nil {
		return err
	}
	if err := r.d.primary.Locks(ctx).Create(ctx, lock); err != nil {
		return err
	}
	// Mirror with the assigned revision id so the stores stay aligned
	mirrored := lock.Clone()
	r.d.mirror(ctx, "lock.create", map[string]any{"revision_id": lock.RevisionID}, func(mctx context.Context) error {
		return r.d.secondary.Locks(mctx).Create(mctx, mirrored)
	})
	return nil
}

func (r *dualLockRepository) Update(ctx context.Context, lock *entity.Lock) error {
	if err := r.d.primary.AssertInTransaction(ctx); err != nil {
		return err
	}
	if err := r.d.primary.Locks(ctx).Update(ctx, lock); err != nil {
		return err
	}
	mirrored := lock.Clone()
	r.d.mirror(ctx, "lock.update", map[string]any{"revision_id": lock.RevisionID}, func(mctx context.Context) error {
		return r.d.secondary.Locks(mctx).Update(mctx, mirrored)
	})
	return nil
}

func (r *dualLockRepository) GetByVerificationCode(ctx context.Context, code string) (*entity.Lock, error) {
	lock, err := r.d.primary.Locks(ctx).GetByVerificationCode(ctx, code)
	if err == nil {
		return lock, nil
	}
	return fallbackRead(r.d, "lock", code, errs.ErrUnknownVerificationCode, err, func() (*entity.Lock, error) {
		return r.d.secondary.Locks(ctx).GetByVerificationCode(ctx, code)
	})
}

func (r *dualLockRepository) GetMostRecent(ctx context.Context, repoID string, action entity.LockAction) (*entity.Lock, error) {
	lock, err := r.d.primary.Locks(ctx).GetMostRecent(ctx, repoID, action)
	if err == nil {
		return lock, nil
	}
	return fallbackRead(r.d, "lock", repoID, errs.ErrUnknownVerificationCode, err, func() (*entity.Lock, error) {
		return r.d.secondary.Locks(ctx).GetMostRecent(ctx, repoID, action)
	})
}

func (r *dualLockRepository) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	exists, err := r.d.primary.Locks(ctx).VerificationCodeExists(ctx, code)
	if err != nil || exists {
		return exists, err
	}
	// Codes issued before the migration may only exist in the legacy store.
	// A secondary failure degrades to the authoritative answer
	secondaryExists, err := func() (ret bool, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				retErr = fmt.Errorf("panic reading secondary store: %v", r)
			}
		}()
		return r.d.secondary.Locks(ctx).VerificationCodeExists(ctx, code)
	}()
	if err != nil {
		r.d.logger.Warn("Secondary store unavailable for code uniqueness check", map[string]any{
			"error": err.Error(),
		})
		return false, nil
	}
	return secondaryExists, nil
}

func (r *dualLockRepository) ListVerifiedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	return r.d.primary.Locks(ctx).ListVerifiedByRegistrarID(ctx, registrarID)
}

func (r *dualLockRepository) ListCurrentlyLockedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	return r.d.primary.Locks(ctx).ListCurrentlyLockedByRegistrarID(ctx, registrarID)
}

// dualCursorRepository mirrors cursor writes. Cursors are born in the
// authoritative store, so reads never fall back
type dualCursorRepository struct {
	d *DualStore
}

func (r *dualCursorRepository) Get(ctx context.Context, id entity.CursorID) (*entity.Cursor, error) {
	return r.d.primary.Cursors(ctx).Get(ctx, id)
}

func (r *dualCursorRepository) Set(ctx context.Context, typ entity.CursorType, scope string, cursorTime, now time.Time) error {
	if err := r.d.primary.Cursors(ctx).Set(ctx, typ, scope, cursorTime, now); err != nil {
		return err
	}
	r.d.mirror(ctx, "cursor.set", map[string]any{"cursor_type": string(typ), "scope": scope}, func(mctx context.Context) error {
		return r.d.secondary.Cursors(mctx).Set(mctx, typ, scope, cursorTime, now)
	})
	return nil
}
