package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regsuite/registry-core/internal/domain/entity"
)

// lockDomain drives a domain through the full lock workflow and returns the
// verified lock record
func lockDomain(t *testing.T, svc *Service, domainName string) *entity.Lock {
	t.Helper()
	requested, err := svc.RequestLock(context.Background(), domainName, "TheRegistrar", "contact-1", false)
	require.NoError(t, err)
	verified, err := svc.VerifyAndApplyLock(context.Background(), requested.VerificationCode, false)
	require.NoError(t, err)
	return verified
}

func TestService_ListVerifiedLocks(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedDomain(store, false)

	lockDomain(t, svc, "example.tld")
	unlockDomain(t, svc)

	// Pending requests never appear
	_, err := svc.RequestLock(context.Background(), "example.tld", "TheRegistrar", "contact-1", false)
	require.NoError(t, err)

	locks, err := svc.ListVerifiedLocks(context.Background(), "TheRegistrar")
	require.NoError(t, err)
	require.Len(t, locks, 2)
	assert.Equal(t, entity.LockActionUnlock, locks[0].Action)
	assert.Equal(t, entity.LockActionLock, locks[1].Action)
}

func TestService_ListLockedDomains(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedDomain(store, false)
	store.SeedResource(&entity.Resource{
		RepoID:             "3-OTHER",
		Type:               entity.ResourceTypeDomain,
		DomainName:         "other.tld",
		SponsorRegistrarID: "TheRegistrar",
		CreationTime:       baseTime.Add(-24 * time.Hour),
		UpdateTime:         baseTime.Add(-24 * time.Hour),
	})

	lockDomain(t, svc, "example.tld")
	lockDomain(t, svc, "other.tld")

	locked, err := svc.ListLockedDomains(context.Background(), "TheRegistrar")
	require.NoError(t, err)
	require.Len(t, locked, 2)

	// An unlocked domain drops out of the locked listing but its verified
	// records stay in the history
	unlock := unlockDomain(t, svc)

	locked, err = svc.ListLockedDomains(context.Background(), "TheRegistrar")
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, "other.tld", locked[0].DomainName)

	history, err := svc.ListVerifiedLocks(context.Background(), "TheRegistrar")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	// Relocking brings it back
	outcome := svc.Relock(context.Background(), unlock.VerificationCode)
	require.Equal(t, OutcomeSuccess, outcome.Status)

	locked, err = svc.ListLockedDomains(context.Background(), "TheRegistrar")
	require.NoError(t, err)
	require.Len(t, locked, 2)

	// A pending lock request on a third domain does not count as locked
	store.SeedResource(&entity.Resource{
		RepoID:             "4-PENDING",
		Type:               entity.ResourceTypeDomain,
		DomainName:         "pending.tld",
		SponsorRegistrarID: "TheRegistrar",
		CreationTime:       baseTime.Add(-24 * time.Hour),
		UpdateTime:         baseTime.Add(-24 * time.Hour),
	})
	_, err = svc.RequestLock(context.Background(), "pending.tld", "TheRegistrar", "contact-1", false)
	require.NoError(t, err)

	locked, err = svc.ListLockedDomains(context.Background(), "TheRegistrar")
	require.NoError(t, err)
	assert.Len(t, locked, 2)
}

func TestService_ListLockedDomainsStoreFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.FailOn["lock.listLocked"] = assert.AnError

	_, err := svc.ListLockedDomains(context.Background(), "TheRegistrar")
	require.Error(t, err)
}
