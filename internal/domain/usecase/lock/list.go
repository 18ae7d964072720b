package lock

import (
	"context"

	"github.com/regsuite/registry-core/internal/domain/entity"
)

// ListVerifiedLocks returns the completed lock and unlock records of a
// registrar, newest first. This is the registrar-facing audit view
func (s *Service) ListVerifiedLocks(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	var locks []*entity.Lock
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		locks, err = s.store.Locks(ctx).ListVerifiedByRegistrarID(ctx, registrarID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return locks, nil
}

// ListLockedDomains returns the lock records of a registrar's currently
// locked domains, newest first. A domain that was locked and later unlocked
// does not appear; relocking it does
func (s *Service) ListLockedDomains(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	var locks []*entity.Lock
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		locks, err = s.store.Locks(ctx).ListCurrentlyLockedByRegistrarID(ctx, registrarID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return locks, nil
}
