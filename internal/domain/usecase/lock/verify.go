package lock

import (
	"context"
	"errors"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
)

// VerifyAndApplyLock completes a pending lock request identified by its
// verification code and applies the registry lock statuses to the domain,
// bumping its update timestamp, all in one atomic transaction. Verifying an
// already-VERIFIED code fails with ErrConcurrentModification and does not
// reapply anything
func (s *Service) VerifyAndApplyLock(ctx context.Context, code string, isSuperuser bool) (*entity.Lock, error) {
	return s.verifyAndApply(ctx, code, isSuperuser, entity.LockActionLock)
}

// VerifyAndApplyUnlock completes a pending unlock request and removes the
// registry lock statuses from the domain, the mirror image of
// VerifyAndApplyLock
func (s *Service) VerifyAndApplyUnlock(ctx context.Context, code string, isSuperuser bool) (*entity.Lock, error) {
	return s.verifyAndApply(ctx, code, isSuperuser, entity.LockActionUnlock)
}

func (s *Service) verifyAndApply(ctx context.Context, code string, isSuperuser bool, action entity.LockAction) (*entity.Lock, error) {
	var verified *entity.Lock
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		now, err := s.store.TransactionTime(ctx)
		if err != nil {
			return err
		}

		lock, err := s.store.Locks(ctx).GetByVerificationCode(ctx, code)
		if err != nil {
			return err
		}
		// A code issued for the other action does not exist for this one
		if lock.Action != action {
			return errs.NewLockError(lock.DomainName, string(action), code, errs.ErrUnknownVerificationCode)
		}
		if lock.IsVerified() {
			return errs.NewLockError(lock.DomainName, string(action), code, errs.ErrConcurrentModification)
		}
		if lock.IsExpiredAt(now, s.cfg.VerificationCodeTTL) {
			return errs.NewLockError(lock.DomainName, string(action), code, errs.ErrVerificationCodeExpired)
		}
		if lock.IsSuperuser && !isSuperuser {
			return errs.NewLockError(lock.DomainName, string(action), code, errs.ErrSuperuserOnly)
		}

		domain, err := s.store.Resources(ctx).GetByRepoID(ctx, lock.RepoID)
		if errors.Is(err, errs.ErrResourceNotFound) {
			return errs.NewLockError(lock.DomainName, string(action), code, errs.ErrDomainDeleted)
		}
		if err != nil {
			return err
		}
		if domain.IsDeletedAt(now) {
			return errs.NewLockError(lock.DomainName, string(action), code, errs.ErrDomainDeleted)
		}

		changed := false
		for _, status := range entity.RegistryLockStatuses {
			if action == entity.LockActionLock {
				changed = domain.AddStatus(status) || changed
			} else {
				changed = domain.RemoveStatus(status) || changed
			}
		}
		if changed {
			domain.UpdateTime = now
			if err := s.store.Resources(ctx).Save(ctx, domain); err != nil {
				return err
			}
		}

		lock.Complete(now)
		if err := s.store.Locks(ctx).Update(ctx, lock); err != nil {
			return err
		}
		verified = lock
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lock request verified and applied", map[string]any{
		"domain_name": verified.DomainName,
		"action":      string(verified.Action),
		"revision_id": verified.RevisionID,
	})
	return verified, nil
}
