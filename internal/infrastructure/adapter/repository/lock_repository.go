package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/model"
)

// LockRepository implements persistence.LockRepository using GORM
type LockRepository struct {
	db              *gorm.DB
	storeName       string
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewLockRepository creates a new LockRepository instance bound to db, which
// may be a live transaction
func NewLockRepository(db *gorm.DB, storeName string, logger coreport.Logger) *LockRepository {
	return &LockRepository{
		db:              db,
		storeName:       storeName,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func modelToLock(m *model.RegistryLock) *entity.Lock {
	return &entity.Lock{
		RevisionID:         m.RevisionID,
		RepoID:             m.RepoID,
		DomainName:         m.DomainName,
		RegistrarID:        m.RegistrarID,
		RegistrarContactID: m.RegistrarContactID,
		Action:             entity.LockAction(m.Action),
		Status:             entity.LockStatus(m.Status),
		VerificationCode:   m.VerificationCode,
		IsSuperuser:        m.IsSuperuser,
		RequestTime:        m.RequestTime,
		CompletionTime:     m.CompletionTime,
		RelockRevisionID:   m.RelockRevisionID,
	}
}

func lockToModel(l *entity.Lock) *model.RegistryLock {
	return &model.RegistryLock{
		RevisionID:         l.RevisionID,
		RepoID:             l.RepoID,
		DomainName:         l.DomainName,
		RegistrarID:        l.RegistrarID,
		RegistrarContactID: l.RegistrarContactID,
		Action:             string(l.Action),
		Status:             string(l.Status),
		VerificationCode:   l.VerificationCode,
		IsSuperuser:        l.IsSuperuser,
		RequestTime:        l.RequestTime,
		CompletionTime:     l.CompletionTime,
		RelockRevisionID:   l.RelockRevisionID,
	}
}

// handleError standardizes database error handling
func (r *LockRepository) handleError(operation string, err error, key string) error {
	if r.errorClassifier.IsNotFound(err) {
		return errs.ErrUnknownVerificationCode
	}
	if r.errorClassifier.IsDuplicateKeyError(err) {
		return errs.ErrDuplicateKey
	}
	r.logger.Error(fmt.Sprintf("Database error when %s", operation), map[string]any{
		"store": r.storeName,
		"key":   key,
		"error": err.Error(),
	})
	return errs.NewStoreError(r.storeName, operation, err)
}

// Create persists a new lock record and assigns its revision id
func (r *LockRepository) Create(ctx context.Context, lock *entity.Lock) error {
	m := lockToModel(lock)
	result := r.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		return r.handleError("creating lock", result.Error, lock.VerificationCode)
	}
	lock.RevisionID = m.RevisionID
	return nil
}

// Update persists changes to an existing lock record
func (r *LockRepository) Update(ctx context.Context, lock *entity.Lock) error {
	if lock.RevisionID == 0 {
		return fmt.Errorf("%w: lock has no revision id", errs.ErrInternalServer)
	}
	result := r.db.WithContext(ctx).Save(lockToModel(lock))
	if result.Error != nil {
		return r.handleError("updating lock", result.Error, lock.VerificationCode)
	}
	return nil
}

// GetByVerificationCode retrieves the lock identified by the code. The row is
// locked for update so concurrent verifications of the same code serialize
func (r *LockRepository) GetByVerificationCode(ctx context.Context, code string) (*entity.Lock, error) {
	var m model.RegistryLock
	result := r.db.WithContext(ctx).Where("verification_code = ?", code).First(&m)
	if result.Error != nil {
		return nil, r.handleError("loading lock by code", result.Error, code)
	}
	return modelToLock(&m), nil
}

// GetMostRecent retrieves the newest lock record of the given action for a resource
func (r *LockRepository) GetMostRecent(ctx context.Context, repoID string, action entity.LockAction) (*entity.Lock, error) {
	var m model.RegistryLock
	result := r.db.WithContext(ctx).
		Where("repo_id = ? AND action = ?", repoID, string(action)).
		Order("revision_id DESC").
		First(&m)
	if result.Error != nil {
		return nil, r.handleError("loading most recent lock", result.Error, repoID)
	}
	return modelToLock(&m), nil
}

// VerificationCodeExists reports whether any lock ever created used the code
func (r *LockRepository) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&model.RegistryLock{}).
		Where("verification_code = ?", code).
		Count(&count)
	if result.Error != nil {
		return false, r.handleError("checking verification code", result.Error, code)
	}
	return count > 0, nil
}

// ListVerifiedByRegistrarID returns verified lock records for a registrar, newest first
func (r *LockRepository) ListVerifiedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	var models []model.RegistryLock
	result := r.db.WithContext(ctx).
		Where("registrar_id = ? AND status = ?", registrarID, string(entity.LockStatusVerified)).
		Order("revision_id DESC").
		Find(&models)
	if result.Error != nil {
		return nil, r.handleError("listing locks by registrar", result.Error, registrarID)
	}
	locks := make([]*entity.Lock, 0, len(models))
	for i := range models {
		locks = append(locks, modelToLock(&models[i]))
	}
	return locks, nil
}

// ListCurrentlyLockedByRegistrarID returns the registrar's verified LOCK rows
// for domains with no later verified UNLOCK, newest first. This is the
// currently-locked view: a domain locked and later unlocked does not appear
func (r *LockRepository) ListCurrentlyLockedByRegistrarID(ctx context.Context, registrarID string) ([]*entity.Lock, error) {
	var models []model.RegistryLock
	result := r.db.WithContext(ctx).
		Where("registrar_id = ? AND action = ? AND status = ?",
			registrarID, string(entity.LockActionLock), string(entity.LockStatusVerified)).
		Where(`NOT EXISTS (
			SELECT 1 FROM registry_locks u
			WHERE u.repo_id = registry_locks.repo_id
			  AND u.action = ?
			  AND u.status = ?
			  AND u.revision_id > registry_locks.revision_id
		)`, string(entity.LockActionUnlock), string(entity.LockStatusVerified)).
		Order("revision_id DESC").
		Find(&models)
	if result.Error != nil {
		return nil, r.handleError("listing locked domains by registrar", result.Error, registrarID)
	}
	locks := make([]*entity.Lock, 0, len(models))
	for i := range models {
		locks = append(locks, modelToLock(&models[i]))
	}
	return locks, nil
}
