package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
)

// memTx is a live in-memory transaction
type memTx struct {
	time time.Time
}

// MemoryStore is an in-memory persistence.Store with real transaction
// semantics: one transaction at a time, snapshot rollback on error, nested
// Transact joins the enclosing transaction and the transaction time is fixed
// at begin. FailOn injects errors by operation name, e.g. "resource.save"
type MemoryStore struct {
	mu    sync.Mutex
	clock coreport.Clock

	resources map[string]*entity.Resource
	locks     map[int64]*entity.Lock
	cursors   map[entity.CursorID]*entity.Cursor
	nextRev   int64

	// key scopes this store's transaction in a context so two stores can
	// transact independently under one dual-store coordinator
	key *struct{}

	FailOn map[string]error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(clock coreport.Clock) *MemoryStore {
	return &MemoryStore{
		clock:     clock,
		resources: make(map[string]*entity.Resource),
		locks:     make(map[int64]*entity.Lock),
		cursors:   make(map[entity.CursorID]*entity.Cursor),
		nextRev:   1,
		key:       &struct{}{},
		FailOn:    make(map[string]error),
	}
}

// SeedResource inserts a resource outside any transaction
func (s *MemoryStore) SeedResource(r *entity.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.RepoID] = r.Clone()
}

// SeedLock inserts a lock record outside any transaction, assigning its
// revision id
func (s *MemoryStore) SeedLock(l *entity.Lock) *entity.Lock {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := l.Clone()
	stored.RevisionID = s.nextRev
	s.nextRev++
	s.locks[stored.RevisionID] = stored
	return stored.Clone()
}

// Resource returns the stored resource by repository id, or nil
func (s *MemoryStore) Resource(repoID string) *entity.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resources[repoID]; ok {
		return r.Clone()
	}
	return nil
}

// LockByRevision returns the stored lock record, or nil
func (s *MemoryStore) LockByRevision(revisionID int64) *entity.Lock {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[revisionID]; ok {
		return l.Clone()
	}
	return nil
}

// Cursor returns the stored cursor for the key, or nil
func (s *MemoryStore) Cursor(id entity.CursorID) *entity.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cursors[id]; ok {
		out := *c
		return &out
	}
	return nil
}

func (s *MemoryStore) txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(s.key).(*memTx)
	return tx
}

// Transact runs work atomically. A nested call joins the enclosing
// transaction instead of opening a new one
func (s *MemoryStore) Transact(ctx context.Context, work persistence.Work) error {
	if s.txFrom(ctx) != nil {
		return work(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapResources, snapLocks, snapCursors, snapRev := s.snapshot()
	tx := &memTx{time: s.clock.Now().UTC()}
	err := work(context.WithValue(ctx, s.key, tx))
	if err != nil {
		s.resources, s.locks, s.cursors, s.nextRev = snapResources, snapLocks, snapCursors, snapRev
		return err
	}
	return nil
}

// snapshot deep-copies all state for rollback
func (s *MemoryStore) snapshot() (map[string]*entity.Resource, map[int64]*entity.Lock, map[entity.CursorID]*entity.Cursor, int64) {
	resources := make(map[string]*entity.Resource, len(s.resources))
	for k, v := range s.resources {
		resources[k] = v.Clone()
	}
	locks := make(map[int64]*entity.Lock, len(s.locks))
	for k, v := range s.locks {
		locks[k] = v.Clone()
	}
	cursors := make(map[entity.CursorID]*entity.Cursor, len(s.cursors))
	for k, v := range s.cursors {
		c := *v
		cursors[k] = &c
	}
	return resources, locks, cursors, s.nextRev
}

// InTransaction reports whether ctx carries a live transaction of this store
func (s *MemoryStore) InTransaction(ctx context.Context) bool {
	return s.txFrom(ctx) != nil
}

// AssertInTransaction fails with ErrNotInTransaction outside a transaction
func (s *MemoryStore) AssertInTransaction(ctx context.Context) error {
	if !s.InTransaction(ctx) {
		return errs.ErrNotInTransaction
	}
	return nil
}

// TransactionTime returns the time fixed when the enclosing transaction began
func (s *MemoryStore) TransactionTime(ctx context.Context) (time.Time, error) {
	tx := s.txFrom(ctx)
	if tx == nil {
		return time.Time{}, errs.ErrNotInTransaction
	}
	return tx.time, nil
}

// Resources returns the in-memory resource repository
func (s *MemoryStore) Resources(ctx context.Context) persistence.ResourceRepository {
	return &memResourceRepo{s: s}
}

// Locks returns the in-memory lock repository
func (s *MemoryStore) Locks(ctx context.Context) persistence.LockRepository {
	return &memLockRepo{s: s}
}

// Cursors returns the in-memory cursor repository
func (s *MemoryStore) Cursors(ctx context.Context) persistence.CursorRepository {
	return &memCursorRepo{s: s}
}

// withState runs fn with the store's maps accessible, taking the mutex only
// outside a transaction (inside one the mutex is already held by Transact)
func (s *MemoryStore) withState(ctx context.Context, fn func() error) error {
	if s.txFrom(ctx) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn()
}

func (s *MemoryStore) fail(op string) error {
	return s.FailOn[op]
}

type memResourceRepo struct {
	s *MemoryStore
}

func (r *memResourceRepo) GetByRepoID(ctx context.Context, repoID string) (*entity.Resource, error) {
	if err := r.s.fail("resource.get"); err != nil {
		return nil, err
	}
	var out *entity.Resource
	err := r.s.withState(ctx, func() error {
		res, ok := r.s.resources[repoID]
		if !ok {
			return fmt.Errorf("resource %s: %w", repoID, errs.ErrResourceNotFound)
		}
		out = res.Clone()
		return nil
	})
	return out, err
}

func (r *memResourceRepo) GetDomainByName(ctx context.Context, domainName string) (*entity.Resource, error) {
	if err := r.s.fail("resource.getDomain"); err != nil {
		return nil, err
	}
	var out *entity.Resource
	err := r.s.withState(ctx, func() error {
		// The live row wins over soft-deleted rows of the same name
		var best *entity.Resource
		for _, res := range r.s.resources {
			if res.Type != entity.ResourceTypeDomain || res.DomainName != domainName {
				continue
			}
			if best == nil {
				best = res
				continue
			}
			if best.DeletionTime != nil && (res.DeletionTime == nil || res.DeletionTime.Before(*best.DeletionTime)) {
				best = res
			}
		}
		if best == nil {
			return fmt.Errorf("domain %s: %w", domainName, errs.ErrResourceNotFound)
		}
		out = best.Clone()
		return nil
	})
	return out, err
}

func (r *memResourceRepo) Save(ctx context.Context, resource *entity.Resource) error {
	if err := r.s.fail("resource.save"); err != nil {
		return err
	}
	return r.s.withState(ctx, func() error {
		r.s.resources[resource.RepoID] = resource.Clone()
		return nil
	})
}

func (r *memResourceRepo) ListRepoIDs(ctx context.Context, typ entity.ResourceType, afterRepoID string, limit int) ([]string, error) {
	if err := r.s.fail("resource.list"); err != nil {
		return nil, err
	}
	return r.listIDs(ctx, typ, afterRepoID, limit, func(*entity.Resource) bool { return true })
}

func (r *memResourceRepo) ListResaveCandidateRepoIDs(ctx context.Context, typ entity.ResourceType, asOf time.Time, afterRepoID string, limit int) ([]string, error) {
	if err := r.s.fail("resource.list"); err != nil {
		return nil, err
	}
	return r.listIDs(ctx, typ, afterRepoID, limit, func(res *entity.Resource) bool {
		return res.HasExpiredPendingTransfer(asOf)
	})
}

func (r *memResourceRepo) listIDs(ctx context.Context, typ entity.ResourceType, afterRepoID string, limit int, match func(*entity.Resource) bool) ([]string, error) {
	var ids []string
	err := r.s.withState(ctx, func() error {
		for id, res := range r.s.resources {
			if res.Type == typ && id > afterRepoID && match(res) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		if limit > 0 && len(ids) > limit {
			ids = ids[:limit]
		}
		return nil
	})
	return ids, err
}

type memLockRepo struct {
	s *MemoryStore
}

func (r *memLockRepo) Create(ctx context.Context, lock *entity.Lock) error {
	if err := r.s.fail("lock.create"); err != nil {
		return err
	}
	return r.s.withState(ctx, func() error {
		stored := lock.Clone()
		if stored.RevisionID == 0 {
			stored.RevisionID = r.s.nextRev
			r.s.nextRev++
		} else if stored.RevisionID >= r.s.nextRev {
			r.s.nextRev = stored.RevisionID + 1
		}
		r.s.locks[stored.RevisionID] = stored
		lock.RevisionID = stored.RevisionID
		return nil
	})
}

func (r *memLockRepo) Update(ctx context.Context, lock *entity.Lock) error {
	if err := r.s.fail("lock.update"); err != nil {
		return err
	}
	return r.s.withState(ctx, func() error {
		if _, ok := r.s.locks[lock.RevisionID]; !ok {
			return fmt.Errorf("%w: lock revision %d does not exist", errs.ErrInternalServer, lock.RevisionID)
		}
		r.s.locks[lock.RevisionID] = lock.Clone()
		return nil
	})
}

func (r *memLockRepo) GetByVerificationCode(ctx context.Context, code string) (*entity.Lock, error) {
	if err := r.s.fail("lock.getByCode"); err != nil {
		return nil, err
	}
	var out *entity.Lock
	err := r.s.withState(ctx, func() error {
		for _, l := range r.s.locks {
			if l.VerificationCode == code {
				out = l.Clone()
				return nil
			}
		}
		return fmt.Errorf("verification code %s: %w", code, errs.ErrUnknownVerificationCode)
	})
	return out, err
}

func (r *memLockRepo) GetMostRecent(ctx context.Context, repoID string, action entity.LockAction) (*entity.Lock, error) {
	if err := r.s.fail("lock.getMostRecent"); err != nil {
		return nil, err
	}
	var out *entity.Lock
	err := r.s.withState(ctx, func() error {
		for _, l := range r.s.locks {
			if l.RepoID == repoID && l.Action == action && (out == nil || l.RevisionID > out.RevisionID) {
				out = l
			}
		}
		if out == nil {
			return fmt.Errorf("no %s record for %s: %w", action, repoID, errs.ErrUnknownVerificationCode)
		}
		out = out.Clone()
		return nil
	})
	return out, err
}

func (r *memLockRepo) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	if err := r.s.fail("lock.codeExists"); err != nil {
		return false, err
	}
	exists := false
	err := r.s.withState(ctx, func() error {
		for _, l := range r.s.locks {
			if l.VerificationCode == code {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r *memLockRepo) ListVerifiedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	if err := r.s.fail("lock.list"); err != nil {
		return nil, err
	}
	var out []*entity.Lock
	err := r.s.withState(ctx, func() error {
		for _, l := range r.s.locks {
			if l.RegistrarID == registrarID && l.IsVerified() {
				out = append(out, l.Clone())
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RevisionID > out[j].RevisionID })
		return nil
	})
	return out, err
}

func (r *memLockRepo) ListCurrentlyLockedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	if err := r.s.fail("lock.listLocked"); err != nil {
		return nil, err
	}
	var out []*entity.Lock
	err := r.s.withState(ctx, func() error {
		// A verified LOCK counts only while no later verified UNLOCK exists
		// for the same resource
		for _, l := range r.s.locks {
			if l.RegistrarID != registrarID || l.Action != entity.LockActionLock || !l.IsVerified() {
				continue
			}
			unlocked := false
			for _, u := range r.s.locks {
				if u.RepoID == l.RepoID && u.Action == entity.LockActionUnlock && u.IsVerified() && u.RevisionID > l.RevisionID {
					unlocked = true
					break
				}
			}
			if !unlocked {
				out = append(out, l.Clone())
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RevisionID > out[j].RevisionID })
		return nil
	})
	return out, err
}

type memCursorRepo struct {
	s *MemoryStore
}

func (r *memCursorRepo) Get(ctx context.Context, id entity.CursorID) (*entity.Cursor, error) {
	if err := r.s.fail("cursor.get"); err != nil {
		return nil, err
	}
	var out *entity.Cursor
	err := r.s.withState(ctx, func() error {
		c, ok := r.s.cursors[id]
		if !ok {
			return fmt.Errorf("cursor %s/%s: %w", id.Type, id.Scope, errs.ErrCursorNotFound)
		}
		copied := *c
		out = &copied
		return nil
	})
	return out, err
}

func (r *memCursorRepo) Set(ctx context.Context, typ entity.CursorType, scope string, cursorTime, now time.Time) error {
	if err := r.s.fail("cursor.set"); err != nil {
		return err
	}
	return r.s.withState(ctx, func() error {
		c := entity.NewCursor(typ, scope, cursorTime, now)
		r.s.cursors[c.ID()] = c
		return nil
	})
}
