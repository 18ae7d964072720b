package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/model"
)

// CursorRepository implements persistence.CursorRepository using GORM
type CursorRepository struct {
	db        *gorm.DB
	storeName string
	logger    coreport.Logger
}

// NewCursorRepository creates a new CursorRepository instance bound to db,
// which may be a live transaction
func NewCursorRepository(db *gorm.DB, storeName string, logger coreport.Logger) *CursorRepository {
	return &CursorRepository{
		db:        db,
		storeName: storeName,
		logger:    logger,
	}
}

// Get returns the cursor for the key, or ErrCursorNotFound if never set
func (r *CursorRepository) Get(ctx context.Context, id entity.CursorID) (*entity.Cursor, error) {
	var m model.Cursor
	result := r.db.WithContext(ctx).
		Where("type = ? AND scope = ?", string(id.Type), id.Scope).
		First(&m)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errs.ErrCursorNotFound
		}
		r.logger.Error("Database error when loading cursor", map[string]any{
			"store": r.storeName,
			"type":  string(id.Type),
			"scope": id.Scope,
			"error": result.Error.Error(),
		})
		return nil, errs.NewStoreError(r.storeName, "loading cursor", result.Error)
	}
	return &entity.Cursor{
		Type:           entity.CursorType(m.Type),
		Scope:          m.Scope,
		CursorTime:     m.CursorTime,
		LastUpdateTime: m.LastUpdateTime,
	}, nil
}

// Set upserts the (type, scope) row in a single statement, so concurrent
// setters of the same key overwrite rather than duplicate. An empty scope is
// normalized to the global sentinel
func (r *CursorRepository) Set(ctx context.Context, typ entity.CursorType, scope string, cursorTime, now time.Time) error {
	id := entity.NewCursorID(typ, scope)
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO cursors (type, scope, cursor_time, last_update_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (type, scope) DO UPDATE
		SET cursor_time = EXCLUDED.cursor_time,
		    last_update_time = EXCLUDED.last_update_time`,
		string(id.Type), id.Scope, cursorTime, now,
	).Error
	if err != nil {
		r.logger.Error("Database error when setting cursor", map[string]any{
			"store": r.storeName,
			"type":  string(id.Type),
			"scope": id.Scope,
			"error": err.Error(),
		})
		return errs.NewStoreError(r.storeName, fmt.Sprintf("setting cursor %s/%s", id.Type, id.Scope), err)
	}
	return nil
}
