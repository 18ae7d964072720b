package migration

import (
	"context"
	"errors"

	"gorm.io/gorm"

	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/model"
)

const (
	// CurrentSchemaVersion represents the current database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Manager manages database migrations for one store
type Manager struct {
	db     *gorm.DB
	clock  coreport.Clock
	logger coreport.Logger
}

// NewManager creates a new migration manager
func NewManager(db *gorm.DB, clock coreport.Clock, logger coreport.Logger) *Manager {
	return &Manager{
		db:     db,
		clock:  clock,
		logger: logger,
	}
}

// MigrateAll performs all migrations
func (m *Manager) MigrateAll() error {
	m.logger.Info("Starting database migrations", map[string]any{
		"target_version": CurrentSchemaVersion,
	})

	if err := m.db.AutoMigrate(&model.MigrationVersion{}); err != nil {
		m.logger.Error("Failed to create migration version table", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	currentVersion, err := m.CurrentVersion(context.Background())
	if err != nil {
		m.logger.Error("Failed to check current schema version", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if currentVersion == CurrentSchemaVersion {
		m.logger.Info("Database already at target version, skipping migration", map[string]any{
			"version": currentVersion,
		})
		return nil
	}

	if err := m.autoMigrateModels(); err != nil {
		m.logger.Error("Failed to auto-migrate models", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if err := m.createIndexes(); err != nil {
		m.logger.Error("Failed to create indexes", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if err := m.setVersion(context.Background(), CurrentSchemaVersion, "Full schema migration"); err != nil {
		m.logger.Error("Failed to update schema version", map[string]any{
			"error":   err.Error(),
			"version": CurrentSchemaVersion,
		})
		return err
	}

	m.logger.Info("Database migrations completed successfully", map[string]any{
		"version": CurrentSchemaVersion,
	})
	return nil
}

// CurrentVersion returns the most recently applied schema version, or the
// empty string for a fresh database
func (m *Manager) CurrentVersion(ctx context.Context) (string, error) {
	var version model.MigrationVersion
	result := m.db.WithContext(ctx).Order("applied_at desc").First(&version)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return version.Version, nil
}

// setVersion records a new migration version
func (m *Manager) setVersion(ctx context.Context, version string, details string) error {
	row := model.MigrationVersion{
		Version:   version,
		AppliedAt: m.clock.Now(),
		Details:   details,
	}
	return m.db.WithContext(ctx).Create(&row).Error
}

// autoMigrateModels auto-migrates database models
func (m *Manager) autoMigrateModels() error {
	m.logger.Info("Auto-migrating database models", nil)

	return m.db.AutoMigrate(
		&model.Resource{},
		&model.RegistryLock{},
		&model.Cursor{},
	)
}

// createIndexes creates indexes the model tags cannot express
func (m *Manager) createIndexes() error {
	m.logger.Info("Creating database indexes", nil)

	// Resave candidate scan: pending transfers past their promised time
	if err := m.db.Exec("CREATE INDEX IF NOT EXISTS idx_resources_pending_transfer ON resources (transfer_pending_until) WHERE transfer_status = 'PENDING'").Error; err != nil {
		return err
	}

	// Domain reads resolve the live row for a name
	if err := m.db.Exec("CREATE INDEX IF NOT EXISTS idx_resources_domain_name ON resources (domain_name)").Error; err != nil {
		return err
	}

	// Most-recent-lock lookups scan by repo id and action in revision order
	if err := m.db.Exec("CREATE INDEX IF NOT EXISTS idx_registry_locks_repo_action ON registry_locks (repo_id, action, revision_id DESC)").Error; err != nil {
		return err
	}

	return nil
}
