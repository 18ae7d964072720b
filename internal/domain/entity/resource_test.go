package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResource_StatusSet(t *testing.T) {
	r := &Resource{RepoID: "2-EXAMPLE", Type: ResourceTypeDomain}

	assert.True(t, r.AddStatus(StatusServerDeleteProhibited))
	assert.False(t, r.AddStatus(StatusServerDeleteProhibited), "re-adding must be a no-op")
	assert.True(t, r.HasStatus(StatusServerDeleteProhibited))

	assert.True(t, r.RemoveStatus(StatusServerDeleteProhibited))
	assert.False(t, r.RemoveStatus(StatusServerDeleteProhibited), "re-removing must be a no-op")
	assert.False(t, r.HasStatus(StatusServerDeleteProhibited))
}

func TestResource_HasAllStatuses(t *testing.T) {
	r := &Resource{RepoID: "2-EXAMPLE", Type: ResourceTypeDomain}
	assert.False(t, r.HasAllStatuses(RegistryLockStatuses))

	for _, s := range RegistryLockStatuses[:2] {
		r.AddStatus(s)
	}
	assert.False(t, r.HasAllStatuses(RegistryLockStatuses), "a partial set is not locked")

	r.AddStatus(RegistryLockStatuses[2])
	assert.True(t, r.HasAllStatuses(RegistryLockStatuses))
}

func TestResource_IsDeletedAt(t *testing.T) {
	deletion := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Resource{RepoID: "2-EXAMPLE", DeletionTime: &deletion}

	assert.False(t, r.IsDeletedAt(deletion.Add(-time.Second)))
	assert.True(t, r.IsDeletedAt(deletion), "deletion time itself counts as deleted")
	assert.True(t, r.IsDeletedAt(deletion.Add(time.Second)))

	live := &Resource{RepoID: "3-EXAMPLE"}
	assert.False(t, live.IsDeletedAt(deletion))
}

func TestResource_ProjectAt(t *testing.T) {
	matured := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		resource *Resource
		asOf     time.Time
		changed  bool
	}{
		{
			name:     "no transfer data",
			resource: &Resource{RepoID: "2-EXAMPLE"},
			asOf:     matured.Add(time.Hour),
			changed:  false,
		},
		{
			name: "pending transfer not yet matured",
			resource: &Resource{
				RepoID: "2-EXAMPLE",
				TransferData: &TransferData{
					Status:              TransferStatusPending,
					GainingRegistrarID:  "NewRegistrar",
					PendingTransferTime: matured,
				},
			},
			asOf:    matured.Add(-time.Second),
			changed: false,
		},
		{
			name: "pending transfer matured",
			resource: &Resource{
				RepoID:             "2-EXAMPLE",
				SponsorRegistrarID: "TheRegistrar",
				Statuses:           []StatusValue{StatusPendingTransfer},
				TransferData: &TransferData{
					Status:              TransferStatusPending,
					GainingRegistrarID:  "NewRegistrar",
					PendingTransferTime: matured,
				},
			},
			asOf:    matured,
			changed: true,
		},
		{
			name: "already resolved transfer",
			resource: &Resource{
				RepoID: "2-EXAMPLE",
				TransferData: &TransferData{
					Status:              TransferStatusClientApproved,
					PendingTransferTime: matured,
				},
			},
			asOf:    matured.Add(time.Hour),
			changed: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			changed := tc.resource.ProjectAt(tc.asOf)
			assert.Equal(t, tc.changed, changed)

			if tc.changed {
				assert.Equal(t, TransferStatusServerApproved, tc.resource.TransferData.Status)
				assert.Equal(t, "NewRegistrar", tc.resource.SponsorRegistrarID)
				assert.False(t, tc.resource.HasStatus(StatusPendingTransfer))

				// Projecting the already-projected resource changes nothing
				assert.False(t, tc.resource.ProjectAt(tc.asOf.Add(time.Hour)))
			}
		})
	}
}

func TestResource_Clone(t *testing.T) {
	deletion := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	original := &Resource{
		RepoID:   "2-EXAMPLE",
		Statuses: []StatusValue{StatusOK},
		TransferData: &TransferData{
			Status: TransferStatusPending,
		},
		DeletionTime: &deletion,
	}

	clone := original.Clone()
	clone.AddStatus(StatusPendingDelete)
	clone.TransferData.Status = TransferStatusRejected
	*clone.DeletionTime = deletion.Add(time.Hour)

	assert.Equal(t, []StatusValue{StatusOK}, original.Statuses)
	assert.Equal(t, TransferStatusPending, original.TransferData.Status)
	assert.Equal(t, deletion, *original.DeletionTime)
}
