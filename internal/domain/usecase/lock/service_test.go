package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/logger"
	"github.com/regsuite/registry-core/internal/testutil"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *testutil.MemoryStore, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(baseTime)
	store := testutil.NewMemoryStore(clock)
	svc := NewService(store, clock, logger.NewNoopLogger(), Config{VerificationCodeTTL: time.Hour})
	return svc, store, clock
}

func seedDomain(store *testutil.MemoryStore, locked bool) *entity.Resource {
	domain := &entity.Resource{
		RepoID:             "2-EXAMPLE",
		Type:               entity.ResourceTypeDomain,
		DomainName:         "example.tld",
		SponsorRegistrarID: "TheRegistrar",
		CreationTime:       baseTime.Add(-24 * time.Hour),
		UpdateTime:         baseTime.Add(-24 * time.Hour),
	}
	if locked {
		domain.Statuses = append([]entity.StatusValue(nil), entity.RegistryLockStatuses...)
	}
	store.SeedResource(domain)
	return domain
}

func TestService_RequestLock(t *testing.T) {
	t.Run("creates pending request", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, false)

		lock, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		assert.Equal(t, entity.LockStatusPending, lock.Status)
		assert.Equal(t, entity.LockActionLock, lock.Action)
		assert.NotEmpty(t, lock.VerificationCode)
		assert.Equal(t, baseTime, lock.RequestTime)
		assert.NotZero(t, lock.RevisionID)

		// The domain itself is untouched until verification
		assert.Empty(t, store.Resource("2-EXAMPLE").Statuses)
	})

	t.Run("unknown domain", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.RequestLock(context.Background(), "missing.tld", "TheRegistrar", "contact-1", false)
		assert.ErrorIs(t, err, errs.ErrDomainDeleted)
	})

	t.Run("deleted domain", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		domain := seedDomain(store, false)
		deleted := baseTime.Add(-time.Hour)
		domain.DeletionTime = &deleted
		store.SeedResource(domain)

		_, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		assert.ErrorIs(t, err, errs.ErrDomainDeleted)
	})

	t.Run("already locked domain", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)

		_, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		assert.ErrorIs(t, err, errs.ErrAlreadyLocked)
	})

	t.Run("live pending request", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, false)

		_, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		_, err = svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		assert.ErrorIs(t, err, errs.ErrAlreadyLocked)
	})

	t.Run("expired pending request does not block", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		seedDomain(store, false)

		_, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)
		_, err = svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		assert.NoError(t, err)
	})

	t.Run("non-superuser needs a contact", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, false)

		_, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "", false)
		assert.Error(t, err)

		_, err = svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "", true)
		assert.NoError(t, err, "superusers bypass the contact requirement")
	})
}

func TestService_RequestUnlock(t *testing.T) {
	t.Run("unlocked domain rejects unlock", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, false)

		_, err := svc.RequestUnlock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		assert.ErrorIs(t, err, errs.ErrAlreadyUnlocked)
	})

	t.Run("locked domain accepts unlock", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)

		lock, err := svc.RequestUnlock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)
		assert.Equal(t, entity.LockActionUnlock, lock.Action)
		assert.Equal(t, entity.LockStatusPending, lock.Status)
	})
}

func TestService_VerifyAndApplyLock(t *testing.T) {
	t.Run("applies statuses and stamps update time", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		seedDomain(store, false)

		requested, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		clock.Advance(10 * time.Minute)
		verifyTime := clock.Now()

		verified, err := svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		require.NoError(t, err)

		assert.True(t, verified.IsVerified())
		assert.Equal(t, verifyTime, *verified.CompletionTime)

		domain := store.Resource("2-EXAMPLE")
		assert.True(t, domain.HasAllStatuses(entity.RegistryLockStatuses))
		assert.Equal(t, verifyTime, domain.UpdateTime)
	})

	t.Run("unknown code", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.VerifyAndApplyLock(context.Background(), "no-such-code", false)
		assert.ErrorIs(t, err, errs.ErrUnknownVerificationCode)
	})

	t.Run("code of the other action", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)

		requested, err := svc.RequestUnlock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		assert.ErrorIs(t, err, errs.ErrUnknownVerificationCode)
	})

	t.Run("second verification does not reapply", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, false)

		requested, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)
		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		require.NoError(t, err)

		// Simulate an out-of-band unlock so reapplication would be visible
		domain := store.Resource("2-EXAMPLE")
		for _, s := range entity.RegistryLockStatuses {
			domain.RemoveStatus(s)
		}
		store.SeedResource(domain)

		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		assert.ErrorIs(t, err, errs.ErrConcurrentModification)
		assert.Empty(t, store.Resource("2-EXAMPLE").Statuses, "a used code must never reapply")
	})

	t.Run("expired code", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		seedDomain(store, false)

		requested, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		clock.Advance(time.Hour + time.Second)
		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		assert.ErrorIs(t, err, errs.ErrVerificationCodeExpired)
	})

	t.Run("superuser lock needs a superuser", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, false)

		requested, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "", true)
		require.NoError(t, err)

		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		assert.ErrorIs(t, err, errs.ErrSuperuserOnly)

		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, true)
		assert.NoError(t, err)
	})

	t.Run("domain deleted after request", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		domain := seedDomain(store, false)

		requested, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
		require.NoError(t, err)

		deleted := clock.Now()
		domain.DeletionTime = &deleted
		store.SeedResource(domain)

		_, err = svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
		assert.ErrorIs(t, err, errs.ErrDomainDeleted)
	})
}

func TestService_VerifyAndApplyUnlock(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedDomain(store, true)

	requested, err := svc.RequestUnlock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
	require.NoError(t, err)

	verified, err := svc.VerifyAndApplyUnlock(context.Background(), requested.VerificationCode, false)
	require.NoError(t, err)

	assert.True(t, verified.IsVerified())
	domain := store.Resource("2-EXAMPLE")
	for _, s := range entity.RegistryLockStatuses {
		assert.False(t, domain.HasStatus(s))
	}
}

// unlockDomain drives a locked domain through the full unlock workflow and
// returns the verified unlock record
func unlockDomain(t *testing.T, svc *Service) *entity.Lock {
	t.Helper()
	requested, err := svc.RequestUnlock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
	require.NoError(t, err)
	verified, err := svc.VerifyAndApplyUnlock(context.Background(), requested.VerificationCode, false)
	require.NoError(t, err)
	return verified
}

func TestService_Relock(t *testing.T) {
	t.Run("unknown verification code", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		outcome := svc.Relock(context.Background(), "foo")

		assert.Equal(t, OutcomeRejected, outcome.Status)
		assert.Equal(t, "Relock failed: Unknown verification code foo", outcome.Message)
	})

	t.Run("deleted domain", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		domain := store.Resource("2-EXAMPLE")
		deleted := clock.Now()
		domain.DeletionTime = &deleted
		store.SeedResource(domain)

		outcome := svc.Relock(context.Background(), unlock.VerificationCode)

		assert.Equal(t, OutcomeRejected, outcome.Status)
		assert.Equal(t,
			"Relock failed: Domain has been deleted for lock with identification code "+unlock.VerificationCode,
			outcome.Message)
	})

	t.Run("relocks and chains to the unlock", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		outcome := svc.Relock(context.Background(), unlock.VerificationCode)

		require.Equal(t, OutcomeSuccess, outcome.Status)
		assert.Equal(t, "Re-locked domain example.tld", outcome.Message)
		require.NotNil(t, outcome.Lock)
		assert.True(t, outcome.Lock.IsVerified())

		domain := store.Resource("2-EXAMPLE")
		assert.True(t, domain.HasAllStatuses(entity.RegistryLockStatuses))

		// The unlock record now references its successor
		stored := store.LockByRevision(unlock.RevisionID)
		require.NotNil(t, stored.RelockRevisionID)
		assert.Equal(t, outcome.Lock.RevisionID, *stored.RelockRevisionID)
	})

	t.Run("already locked is a success no-op", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		// Someone relocked out of band
		domain := store.Resource("2-EXAMPLE")
		for _, s := range entity.RegistryLockStatuses {
			domain.AddStatus(s)
		}
		store.SeedResource(domain)

		outcome := svc.Relock(context.Background(), unlock.VerificationCode)

		assert.Equal(t, OutcomeSuccess, outcome.Status)
		assert.Equal(t, "Domain example.tld already locked, no action necessary", outcome.Message)
		assert.Nil(t, store.LockByRevision(unlock.RevisionID).RelockRevisionID)
	})

	t.Run("second relock of the same unlock is rejected", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		first := svc.Relock(context.Background(), unlock.VerificationCode)
		require.Equal(t, OutcomeSuccess, first.Status)

		second := svc.Relock(context.Background(), unlock.VerificationCode)
		assert.Equal(t, OutcomeRejected, second.Status)
		assert.Contains(t, second.Message, "Relock failed:")
	})

	t.Run("pending delete is rejected", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		domain := store.Resource("2-EXAMPLE")
		domain.AddStatus(entity.StatusPendingDelete)
		store.SeedResource(domain)

		outcome := svc.Relock(context.Background(), unlock.VerificationCode)
		assert.Equal(t, OutcomeRejected, outcome.Status)
		assert.Equal(t, "Relock failed: domain has a pending delete", outcome.Message)
	})

	t.Run("registrar changed is rejected", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		domain := store.Resource("2-EXAMPLE")
		domain.SponsorRegistrarID = "NewRegistrar"
		store.SeedResource(domain)

		outcome := svc.Relock(context.Background(), unlock.VerificationCode)
		assert.Equal(t, OutcomeRejected, outcome.Status)
		assert.Equal(t, "Relock failed: domain has been transferred to another registrar", outcome.Message)
	})

	t.Run("store fault fails and rolls back", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedDomain(store, true)
		unlock := unlockDomain(t, svc)

		store.FailOn["resource.save"] = errors.New("disk full")
		outcome := svc.Relock(context.Background(), unlock.VerificationCode)
		delete(store.FailOn, "resource.save")

		assert.Equal(t, OutcomeFailed, outcome.Status)
		assert.Contains(t, outcome.Message, "Relock failed:")

		// The whole combined transaction rolled back: no statuses applied, no
		// successor recorded
		domain := store.Resource("2-EXAMPLE")
		assert.False(t, domain.HasAllStatuses(entity.RegistryLockStatuses))
		assert.Nil(t, store.LockByRevision(unlock.RevisionID).RelockRevisionID)
	})
}
