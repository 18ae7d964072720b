package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/model"
)

// ResourceRepository implements persistence.ResourceRepository using GORM
type ResourceRepository struct {
	db              *gorm.DB
	storeName       string
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewResourceRepository creates a new ResourceRepository instance bound to db,
// which may be a live transaction
func NewResourceRepository(db *gorm.DB, storeName string, logger coreport.Logger) *ResourceRepository {
	return &ResourceRepository{
		db:              db,
		storeName:       storeName,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// modelToEntity converts a resource model to a domain entity
func modelToResource(m *model.Resource) *entity.Resource {
	res := &entity.Resource{
		RepoID:             m.RepoID,
		Type:               entity.ResourceType(m.Type),
		DomainName:         m.DomainName,
		SponsorRegistrarID: m.SponsorRegistrarID,
		CreationTime:       m.CreationTime,
		UpdateTime:         m.UpdateTime,
		DeletionTime:       m.DeletionTime,
	}
	if m.Statuses != "" {
		for _, s := range strings.Split(m.Statuses, ",") {
			res.Statuses = append(res.Statuses, entity.StatusValue(s))
		}
	}
	if m.TransferStatus != nil {
		td := &entity.TransferData{Status: entity.TransferStatus(*m.TransferStatus)}
		if m.TransferGainingID != nil {
			td.GainingRegistrarID = *m.TransferGainingID
		}
		if m.TransferRequestTime != nil {
			td.RequestTime = *m.TransferRequestTime
		}
		if m.TransferPendingUntil != nil {
			td.PendingTransferTime = *m.TransferPendingUntil
		}
		res.TransferData = td
	}
	return res
}

// resourceToModel converts a domain entity to a resource model
func resourceToModel(r *entity.Resource) *model.Resource {
	statuses := make([]string, 0, len(r.Statuses))
	for _, s := range r.Statuses {
		statuses = append(statuses, string(s))
	}
	m := &model.Resource{
		RepoID:             r.RepoID,
		Type:               string(r.Type),
		DomainName:         r.DomainName,
		SponsorRegistrarID: r.SponsorRegistrarID,
		Statuses:           strings.Join(statuses, ","),
		CreationTime:       r.CreationTime,
		UpdateTime:         r.UpdateTime,
		DeletionTime:       r.DeletionTime,
	}
	if r.TransferData != nil {
		status := string(r.TransferData.Status)
		gaining := r.TransferData.GainingRegistrarID
		request := r.TransferData.RequestTime
		pending := r.TransferData.PendingTransferTime
		m.TransferStatus = &status
		m.TransferGainingID = &gaining
		m.TransferRequestTime = &request
		m.TransferPendingUntil = &pending
	}
	return m
}

// handleError standardizes database error handling
func (r *ResourceRepository) handleError(operation string, err error, repoID string) error {
	if r.errorClassifier.IsNotFound(err) {
		return errs.ErrResourceNotFound
	}
	r.logger.Error(fmt.Sprintf("Database error when %s", operation), map[string]any{
		"store":   r.storeName,
		"repo_id": repoID,
		"error":   err.Error(),
	})
	return errs.NewStoreError(r.storeName, operation, err)
}

// GetByRepoID retrieves a resource by repository id
func (r *ResourceRepository) GetByRepoID(ctx context.Context, repoID string) (*entity.Resource, error) {
	var m model.Resource
	result := r.db.WithContext(ctx).Where("repo_id = ?", repoID).First(&m)
	if result.Error != nil {
		return nil, r.handleError("loading resource", result.Error, repoID)
	}
	return modelToResource(&m), nil
}

// GetDomainByName retrieves the domain with the given fully-qualified name.
// When the name has been reused, the live row (no deletion time) wins over
// soft-deleted predecessors
func (r *ResourceRepository) GetDomainByName(ctx context.Context, domainName string) (*entity.Resource, error) {
	var m model.Resource
	result := r.db.WithContext(ctx).
		Where("type = ? AND domain_name = ?", string(entity.ResourceTypeDomain), domainName).
		Order("deletion_time ASC NULLS FIRST").
		First(&m)
	if result.Error != nil {
		return nil, r.handleError("loading domain by name", result.Error, domainName)
	}
	return modelToResource(&m), nil
}

// Save inserts or updates the resource
func (r *ResourceRepository) Save(ctx context.Context, resource *entity.Resource) error {
	m := resourceToModel(resource)
	result := r.db.WithContext(ctx).Save(m)
	if result.Error != nil {
		return r.handleError("saving resource", result.Error, resource.RepoID)
	}
	return nil
}

// ListRepoIDs pages repository ids of the given type in ascending order
func (r *ResourceRepository) ListRepoIDs(ctx context.Context, typ entity.ResourceType, afterRepoID string, limit int) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("type = ? AND repo_id > ?", string(typ), afterRepoID).
		Order("repo_id ASC").
		Limit(limit).
		Pluck("repo_id", &ids)
	if result.Error != nil {
		return nil, r.handleError("listing resources", result.Error, string(typ))
	}
	return ids, nil
}

// ListResaveCandidateRepoIDs pages repository ids of resources whose pending
// transfer matured at or before asOf
func (r *ResourceRepository) ListResaveCandidateRepoIDs(ctx context.Context, typ entity.ResourceType, asOf time.Time, afterRepoID string, limit int) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("type = ? AND repo_id > ?", string(typ), afterRepoID).
		Where("transfer_status = ? AND transfer_pending_until <= ?", string(entity.TransferStatusPending), asOf).
		Order("repo_id ASC").
		Limit(limit).
		Pluck("repo_id", &ids)
	if result.Error != nil {
		return nil, r.handleError("listing resave candidates", result.Error, string(typ))
	}
	return ids, nil
}
