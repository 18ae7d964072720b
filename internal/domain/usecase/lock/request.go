package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
)

// RequestLock creates a PENDING lock request for the domain. It fails with
// ErrDomainDeleted when the domain does not exist or is soft-deleted, and with
// ErrAlreadyLocked when the domain already carries the registry lock statuses
// or has a live pending lock request
func (s *Service) RequestLock(ctx context.Context, domainName, registrarID, contactID string, isSuperuser bool) (*entity.Lock, error) {
	return s.request(ctx, domainName, registrarID, contactID, isSuperuser, entity.LockActionLock)
}

// RequestUnlock creates a PENDING unlock request for the domain, the mirror
// image of RequestLock. It fails with ErrAlreadyUnlocked when the domain is
// not registry-locked or already has a live pending unlock request
func (s *Service) RequestUnlock(ctx context.Context, domainName, registrarID, contactID string, isSuperuser bool) (*entity.Lock, error) {
	return s.request(ctx, domainName, registrarID, contactID, isSuperuser, entity.LockActionUnlock)
}

func (s *Service) request(ctx context.Context, domainName, registrarID, contactID string, isSuperuser bool, action entity.LockAction) (*entity.Lock, error) {
	if !isSuperuser && contactID == "" {
		return nil, fmt.Errorf("%w: registrar contact id is required for non-superuser requests", errs.ErrInternalServer)
	}

	var created *entity.Lock
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		now, err := s.store.TransactionTime(ctx)
		if err != nil {
			return err
		}

		domain, err := s.store.Resources(ctx).GetDomainByName(ctx, domainName)
		if errors.Is(err, errs.ErrResourceNotFound) {
			return errs.NewLockError(domainName, string(action), "", errs.ErrDomainDeleted)
		}
		if err != nil {
			return err
		}
		if domain.IsDeletedAt(now) {
			return errs.NewLockError(domainName, string(action), "", errs.ErrDomainDeleted)
		}

		locked := domain.HasAllStatuses(entity.RegistryLockStatuses)
		if action == entity.LockActionLock && locked {
			return errs.NewLockError(domainName, string(action), "", errs.ErrAlreadyLocked)
		}
		if action == entity.LockActionUnlock && !locked {
			return errs.NewLockError(domainName, string(action), "", errs.ErrAlreadyUnlocked)
		}

		pending, err := s.hasLivePendingRequest(ctx, domain.RepoID, action)
		if err != nil {
			return err
		}
		if pending {
			if action == entity.LockActionLock {
				return errs.NewLockError(domainName, string(action), "", errs.ErrAlreadyLocked)
			}
			return errs.NewLockError(domainName, string(action), "", errs.ErrAlreadyUnlocked)
		}

		code, err := s.newVerificationCode(ctx)
		if err != nil {
			return err
		}

		lock := &entity.Lock{
			RepoID:             domain.RepoID,
			DomainName:         domain.DomainName,
			RegistrarID:        registrarID,
			RegistrarContactID: contactID,
			Action:             action,
			Status:             entity.LockStatusPending,
			VerificationCode:   code,
			IsSuperuser:        isSuperuser,
			RequestTime:        now,
		}
		if err := s.store.Locks(ctx).Create(ctx, lock); err != nil {
			return err
		}
		created = lock
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lock request created", map[string]any{
		"domain_name":  created.DomainName,
		"action":       string(created.Action),
		"registrar_id": created.RegistrarID,
		"superuser":    created.IsSuperuser,
	})
	return created, nil
}

// hasLivePendingRequest reports whether a PENDING request of the same action
// exists whose verification window has not lapsed. At most one such request
// may exist per domain and action at any instant
func (s *Service) hasLivePendingRequest(ctx context.Context, repoID string, action entity.LockAction) (bool, error) {
	now, err := s.store.TransactionTime(ctx)
	if err != nil {
		return false, err
	}
	recent, err := s.store.Locks(ctx).GetMostRecent(ctx, repoID, action)
	if errors.Is(err, errs.ErrUnknownVerificationCode) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return recent.Status == entity.LockStatusPending && !recent.IsExpiredAt(now, s.cfg.VerificationCodeTTL), nil
}
