package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
)

// Relock re-establishes the registry lock on a domain that was previously
// unlocked, identified by the unlock's verification code. On success the old
// unlock record gains a back-reference to the freshly verified lock, producing
// an auditable unlock-to-relock chain. Unknown codes and stale domains are
// expected operator errors and are reported as a structured outcome, never as
// a hard error to the invoking action
func (s *Service) Relock(ctx context.Context, oldUnlockCode string) Outcome {
	var (
		newLock       *entity.Lock
		domainName    string
		alreadyLocked bool
	)

	err := s.store.Transact(ctx, func(ctx context.Context) error {
		now, err := s.store.TransactionTime(ctx)
		if err != nil {
			return err
		}

		oldLock, err := s.store.Locks(ctx).GetByVerificationCode(ctx, oldUnlockCode)
		if err != nil {
			return err
		}
		// Only a completed unlock can be relocked; anything else means the
		// caller holds a code that identifies no such unlock
		if oldLock.Action != entity.LockActionUnlock || !oldLock.IsVerified() {
			return errs.NewLockError(oldLock.DomainName, "RELOCK", oldUnlockCode, errs.ErrUnknownVerificationCode)
		}
		if oldLock.RelockRevisionID != nil {
			return errs.NewLockError(oldLock.DomainName, "RELOCK", oldUnlockCode, errs.ErrRelockAlreadySet)
		}

		domain, err := s.store.Resources(ctx).GetByRepoID(ctx, oldLock.RepoID)
		if errors.Is(err, errs.ErrResourceNotFound) {
			return errs.NewLockError(oldLock.DomainName, "RELOCK", oldUnlockCode, errs.ErrDomainDeleted)
		}
		if err != nil {
			return err
		}
		domainName = domain.DomainName
		if domain.IsDeletedAt(now) {
			return errs.NewLockError(domainName, "RELOCK", oldUnlockCode, errs.ErrDomainDeleted)
		}
		if domain.HasStatus(entity.StatusPendingDelete) {
			return errs.NewLockError(domainName, "RELOCK", oldUnlockCode, errs.ErrPendingDelete)
		}
		if domain.HasStatus(entity.StatusPendingTransfer) {
			return errs.NewLockError(domainName, "RELOCK", oldUnlockCode, errs.ErrPendingTransfer)
		}
		if domain.SponsorRegistrarID != oldLock.RegistrarID {
			return errs.NewLockError(domainName, "RELOCK", oldUnlockCode, errs.ErrRegistrarChanged)
		}

		if domain.HasAllStatuses(entity.RegistryLockStatuses) {
			alreadyLocked = true
			return nil
		}

		// Request and verify a brand-new lock inside this same transaction;
		// the nested Transact calls join it
		requested, err := s.request(ctx, domainName, oldLock.RegistrarID, oldLock.RegistrarContactID, oldLock.IsSuperuser, entity.LockActionLock)
		if err != nil {
			return err
		}
		verified, err := s.verifyAndApply(ctx, requested.VerificationCode, requested.IsSuperuser, entity.LockActionLock)
		if err != nil {
			return err
		}

		oldLock.SetRelock(verified.RevisionID)
		if err := s.store.Locks(ctx).Update(ctx, oldLock); err != nil {
			return err
		}
		newLock = verified
		return nil
	})

	if err != nil {
		return s.relockFailure(oldUnlockCode, domainName, err)
	}

	if alreadyLocked {
		s.logger.Info("Domain already locked, no action necessary", map[string]any{
			"domain_name": domainName,
		})
		return Outcome{
			Status:  OutcomeSuccess,
			Message: fmt.Sprintf("Domain %s already locked, no action necessary", domainName),
		}
	}

	s.logger.Info("Re-locked domain", map[string]any{
		"domain_name":     domainName,
		"new_revision_id": newLock.RevisionID,
	})
	return Outcome{
		Status:  OutcomeSuccess,
		Message: fmt.Sprintf("Re-locked domain %s", domainName),
		Lock:    newLock,
	}
}

// relockFailure converts an error into the operator-facing outcome, keeping
// the literal message formats existing monitoring matches on
func (s *Service) relockFailure(code, domainName string, err error) Outcome {
	s.logger.Error("Relock attempt failed", map[string]any{
		"verification_code": code,
		"domain_name":       domainName,
		"error":             err.Error(),
	})

	switch {
	case errors.Is(err, errs.ErrUnknownVerificationCode):
		return Outcome{
			Status:  OutcomeRejected,
			Message: fmt.Sprintf("Relock failed: Unknown verification code %s", code),
		}
	case errors.Is(err, errs.ErrDomainDeleted):
		return Outcome{
			Status:  OutcomeRejected,
			Message: fmt.Sprintf("Relock failed: Domain has been deleted for lock with identification code %s", code),
		}
	case errs.IsBusinessOutcome(err):
		return Outcome{
			Status:  OutcomeRejected,
			Message: fmt.Sprintf("Relock failed: %s", rootMessage(err)),
		}
	default:
		return Outcome{
			Status:  OutcomeFailed,
			Message: fmt.Sprintf("Relock failed: %s", rootMessage(err)),
		}
	}
}

// rootMessage unwraps workflow errors down to the sentinel text
func rootMessage(err error) string {
	var lockErr *errs.LockError
	if errors.As(err, &lockErr) {
		return lockErr.Err.Error()
	}
	return err.Error()
}
