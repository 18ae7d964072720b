package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/logger"
	"github.com/regsuite/registry-core/internal/testutil"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingMetrics counts reconciliation events for assertions
type recordingMetrics struct {
	mu             sync.Mutex
	mirrorFailures int
	mirrorOps      []string
	secondaryReads int
}

func (m *recordingMetrics) RecordMirrorFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrorFailures++
	m.mirrorOps = append(m.mirrorOps, operation)
}

func (m *recordingMetrics) RecordSecondaryRead(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secondaryReads++
}

func (m *recordingMetrics) RecordResourceResaved(string)     {}
func (m *recordingMetrics) RecordResourceUnchanged(string)   {}
func (m *recordingMetrics) RecordLockOutcome(string, string) {}

func newTestDualStore(t *testing.T, cacheTTL time.Duration) (*DualStore, *testutil.MemoryStore, *testutil.MemoryStore, *recordingMetrics) {
	t.Helper()
	clock := testutil.NewFakeClock(testTime)
	primary := testutil.NewMemoryStore(clock)
	secondary := testutil.NewMemoryStore(clock)
	metrics := &recordingMetrics{}
	dual := NewDualStore(primary, secondary, clock, logger.NewNoopLogger(), metrics, cacheTTL)
	return dual, primary, secondary, metrics
}

func testResource(repoID string) *entity.Resource {
	return &entity.Resource{
		RepoID:             repoID,
		Type:               entity.ResourceTypeDomain,
		DomainName:         "example.tld",
		SponsorRegistrarID: "TheRegistrar",
		UpdateTime:         testTime,
	}
}

func saveThrough(t *testing.T, dual *DualStore, res *entity.Resource) {
	t.Helper()
	err := dual.Transact(context.Background(), func(ctx context.Context) error {
		return dual.Resources(ctx).Save(ctx, res)
	})
	require.NoError(t, err)
}

func TestDualStore_SaveMirrorsToSecondary(t *testing.T) {
	dual, primary, secondary, metrics := newTestDualStore(t, 0)

	saveThrough(t, dual, testResource("2-EXAMPLE"))

	assert.NotNil(t, primary.Resource("2-EXAMPLE"))
	assert.NotNil(t, secondary.Resource("2-EXAMPLE"), "writes are mirrored to the legacy store")
	assert.Equal(t, 0, metrics.mirrorFailures)
}

func TestDualStore_MirrorFailureNeverFailsCaller(t *testing.T) {
	dual, primary, secondary, metrics := newTestDualStore(t, 0)
	secondary.FailOn["resource.save"] = errors.New("legacy store down")

	saveThrough(t, dual, testResource("2-EXAMPLE"))

	assert.NotNil(t, primary.Resource("2-EXAMPLE"), "the authoritative write must survive")
	assert.Nil(t, secondary.Resource("2-EXAMPLE"))
	assert.Equal(t, 1, metrics.mirrorFailures, "the divergence is recorded as a reconciliation event")
	assert.Equal(t, []string{"resource.save"}, metrics.mirrorOps,
		"the metric label is the fixed operation name, never an identity")
}

func TestDualStore_PrimaryWriteFailurePropagates(t *testing.T) {
	dual, primary, secondary, _ := newTestDualStore(t, 0)
	primary.FailOn["resource.save"] = errors.New("primary down")

	err := dual.Transact(context.Background(), func(ctx context.Context) error {
		return dual.Resources(ctx).Save(ctx, testResource("2-EXAMPLE"))
	})

	assert.Error(t, err)
	assert.Nil(t, secondary.Resource("2-EXAMPLE"), "nothing is mirrored when the authoritative write fails")
}

func TestDualStore_WritesRequireTransaction(t *testing.T) {
	dual, _, _, _ := newTestDualStore(t, 0)

	ctx := context.Background()
	err := dual.Resources(ctx).Save(ctx, testResource("2-EXAMPLE"))
	assert.ErrorIs(t, err, errs.ErrNotInTransaction)
}

func TestDualStore_ReadFallsBackOnAuthoritativeMiss(t *testing.T) {
	dual, _, secondary, metrics := newTestDualStore(t, 0)
	secondary.SeedResource(testResource("2-LEGACY"))

	ctx := context.Background()
	res, err := dual.Resources(ctx).GetByRepoID(ctx, "2-LEGACY")
	require.NoError(t, err)

	assert.Equal(t, "2-LEGACY", res.RepoID)
	assert.Equal(t, 1, metrics.secondaryReads, "each fallback read signals drift")
}

func TestDualStore_ReadMissingInBothStores(t *testing.T) {
	dual, _, _, _ := newTestDualStore(t, 0)

	ctx := context.Background()
	_, err := dual.Resources(ctx).GetByRepoID(ctx, "2-NOWHERE")
	assert.ErrorIs(t, err, errs.ErrResourceNotFound)
}

func TestDualStore_InfrastructureErrorDoesNotFallBack(t *testing.T) {
	dual, primary, secondary, metrics := newTestDualStore(t, 0)
	secondary.SeedResource(testResource("2-EXAMPLE"))
	primary.FailOn["resource.get"] = errors.New("connection refused")

	ctx := context.Background()
	_, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")

	// Only a definitive not-found may fall back; an outage must surface
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrResourceNotFound)
	assert.Equal(t, 0, metrics.secondaryReads)
}

func TestDualStore_FallbackDegradesWhenSecondaryFails(t *testing.T) {
	dual, _, secondary, _ := newTestDualStore(t, 0)
	secondary.FailOn["resource.get"] = errors.New("legacy store down")

	ctx := context.Background()
	_, err := dual.Resources(ctx).GetByRepoID(ctx, "2-NOWHERE")

	// The caller sees the authoritative answer, not the secondary fault
	assert.ErrorIs(t, err, errs.ErrResourceNotFound)
}

func TestDualStore_VerificationCodeUniquenessSpansBothStores(t *testing.T) {
	dual, _, secondary, _ := newTestDualStore(t, 0)
	secondary.SeedLock(&entity.Lock{
		RepoID:           "2-EXAMPLE",
		Action:           entity.LockActionLock,
		Status:           entity.LockStatusVerified,
		VerificationCode: "legacy-code",
	})

	ctx := context.Background()
	exists, err := dual.Locks(ctx).VerificationCodeExists(ctx, "legacy-code")
	require.NoError(t, err)
	assert.True(t, exists, "codes issued before the migration still count")

	exists, err = dual.Locks(ctx).VerificationCodeExists(ctx, "fresh-code")
	require.NoError(t, err)
	assert.False(t, exists)

	// A secondary outage degrades to the authoritative answer
	secondary.FailOn["lock.codeExists"] = errors.New("legacy store down")
	exists, err = dual.Locks(ctx).VerificationCodeExists(ctx, "legacy-code")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDualStore_LockCreateMirrorsAssignedRevision(t *testing.T) {
	dual, primary, secondary, _ := newTestDualStore(t, 0)

	lock := &entity.Lock{
		RepoID:           "2-EXAMPLE",
		Action:           entity.LockActionLock,
		Status:           entity.LockStatusPending,
		VerificationCode: "code-1",
		RequestTime:      testTime,
	}
	err := dual.Transact(context.Background(), func(ctx context.Context) error {
		return dual.Locks(ctx).Create(ctx, lock)
	})
	require.NoError(t, err)
	require.NotZero(t, lock.RevisionID)

	assert.NotNil(t, primary.LockByRevision(lock.RevisionID))
	mirrored := secondary.LockByRevision(lock.RevisionID)
	require.NotNil(t, mirrored, "the mirror carries the assigned revision id")
	assert.Equal(t, "code-1", mirrored.VerificationCode)
}

func TestDualStore_CursorSetMirrors(t *testing.T) {
	dual, primary, secondary, _ := newTestDualStore(t, 0)

	watermark := testTime.Add(-time.Hour)
	err := dual.Transact(context.Background(), func(ctx context.Context) error {
		return dual.Cursors(ctx).Set(ctx, entity.CursorTypeRegistrarExport, "", watermark, testTime)
	})
	require.NoError(t, err)

	id := entity.NewCursorID(entity.CursorTypeRegistrarExport, "")
	require.NotNil(t, primary.Cursor(id))
	require.NotNil(t, secondary.Cursor(id))
	assert.Equal(t, watermark, secondary.Cursor(id).CursorTime)
}

func TestDualStore_CacheServesRepeatReadsAndInvalidatesOnWrite(t *testing.T) {
	dual, primary, _, _ := newTestDualStore(t, time.Minute)
	primary.SeedResource(testResource("2-EXAMPLE"))

	ctx := context.Background()
	first, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)

	// An out-of-band change is invisible while the cache entry is fresh
	changed := first.Clone()
	changed.SponsorRegistrarID = "NewRegistrar"
	primary.SeedResource(changed)

	cached, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "TheRegistrar", cached.SponsorRegistrarID)

	// A write through the coordinator invalidates the entry
	saveThrough(t, dual, changed)
	fresh, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "NewRegistrar", fresh.SponsorRegistrarID)
}

func TestDualStore_CacheEntriesExpire(t *testing.T) {
	clock := testutil.NewFakeClock(testTime)
	primary := testutil.NewMemoryStore(clock)
	secondary := testutil.NewMemoryStore(clock)
	dual := NewDualStore(primary, secondary, clock, logger.NewNoopLogger(), nil, time.Minute)

	primary.SeedResource(testResource("2-EXAMPLE"))
	ctx := context.Background()
	_, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)

	changed := testResource("2-EXAMPLE")
	changed.SponsorRegistrarID = "NewRegistrar"
	primary.SeedResource(changed)

	clock.Advance(2 * time.Minute)
	fresh, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "NewRegistrar", fresh.SponsorRegistrarID)
}

func TestDualStore_TransactionDelegation(t *testing.T) {
	dual, primary, _, _ := newTestDualStore(t, 0)

	assert.False(t, dual.InTransaction(context.Background()))
	_, err := dual.TransactionTime(context.Background())
	assert.ErrorIs(t, err, errs.ErrNotInTransaction)

	err = dual.Transact(context.Background(), func(ctx context.Context) error {
		assert.True(t, dual.InTransaction(ctx))
		assert.True(t, primary.InTransaction(ctx), "the transaction lives in the authoritative store")

		txTime, err := dual.TransactionTime(ctx)
		require.NoError(t, err)
		assert.Equal(t, testTime, txTime)
		return nil
	})
	require.NoError(t, err)
}

// slowReadStore widens the window between a store read and the cache fill by
// running a hook after each resource fetch returns
type slowReadStore struct {
	persistence.Store
	afterGet func()
}

func (s *slowReadStore) Resources(ctx context.Context) persistence.ResourceRepository {
	return &slowReadResourceRepository{
		ResourceRepository: s.Store.Resources(ctx),
		store:              s,
	}
}

type slowReadResourceRepository struct {
	persistence.ResourceRepository
	store *slowReadStore
}

func (r *slowReadResourceRepository) GetByRepoID(ctx context.Context, repoID string) (*entity.Resource, error) {
	res, err := r.ResourceRepository.GetByRepoID(ctx, repoID)
	if hook := r.store.afterGet; hook != nil {
		hook()
	}
	return res, err
}

func TestDualStore_ConcurrentWriteDuringReadIsNotMaskedByCache(t *testing.T) {
	clock := testutil.NewFakeClock(testTime)
	primary := testutil.NewMemoryStore(clock)
	secondary := testutil.NewMemoryStore(clock)
	primary.SeedResource(testResource("2-EXAMPLE"))

	slow := &slowReadStore{Store: primary}
	dual := NewDualStore(slow, secondary, clock, logger.NewNoopLogger(), nil, time.Minute)

	// A write commits and invalidates the key while the first read sits
	// between its store fetch and its cache fill
	slow.afterGet = func() {
		slow.afterGet = nil
		changed := testResource("2-EXAMPLE")
		changed.SponsorRegistrarID = "NewRegistrar"
		saveThrough(t, dual, changed)
	}

	ctx := context.Background()
	inflight, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "TheRegistrar", inflight.SponsorRegistrarID,
		"the in-flight read legitimately observes the pre-write row")

	// The stale row must not have been re-inserted into the cache
	fresh, err := dual.Resources(ctx).GetByRepoID(ctx, "2-EXAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "NewRegistrar", fresh.SponsorRegistrarID,
		"every read after the commit observes the write")
}

var _ persistence.Store = (*DualStore)(nil)
