package database

import (
	"fmt"

	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/database/migration"
)

// Manager opens and owns the connections of both backing stores. The
// authoritative store is required; the legacy store is optional and, when
// absent, the coordinator runs in single-store mode
type Manager struct {
	primary   *Connection
	secondary *Connection
	clock     coreport.Clock
	logger    coreport.Logger
}

// NewManager creates a database manager for the given store configurations.
// secondaryCfg may be nil
func NewManager(primaryCfg, secondaryCfg *Config, clock coreport.Clock, logger coreport.Logger) (*Manager, error) {
	m := &Manager{clock: clock, logger: logger}

	primary, err := m.connect(primaryCfg)
	if err != nil {
		return nil, err
	}
	m.primary = primary

	if secondaryCfg != nil {
		secondary, err := m.connect(secondaryCfg)
		if err != nil {
			_ = primary.Close()
			return nil, err
		}
		m.secondary = secondary
	}

	return m, nil
}

// connect establishes a connection with retry on initial failure
func (m *Manager) connect(cfg *Config) (*Connection, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var conn *Connection
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			m.logger.Warn("Retrying database connection", map[string]any{
				"store":   cfg.Name,
				"attempt": attempt + 1,
				"of":      attempts,
				"delay":   cfg.RetryDelay.String(),
			})
			m.clock.Sleep(cfg.RetryDelay)
		}

		conn, err = NewConnection(cfg)
		if err == nil {
			m.logger.Info("Connected to database", map[string]any{
				"store": cfg.Name,
				"host":  cfg.Host,
				"port":  cfg.Port,
				"name":  cfg.Database,
			})
			return conn, nil
		}

		m.logger.Error("Failed to connect to database", map[string]any{
			"store":   cfg.Name,
			"error":   err.Error(),
			"attempt": attempt + 1,
		})
	}

	return nil, fmt.Errorf("failed to connect to store %q after %d attempts: %w", cfg.Name, attempts, err)
}

// Migrate brings the schema of every connected store up to date. Both stores
// carry the full schema so either one can serve reads during a transition
func (m *Manager) Migrate() error {
	for _, conn := range m.connections() {
		mgr := migration.NewManager(conn.DB, m.clock, m.logger)
		if err := mgr.MigrateAll(); err != nil {
			return fmt.Errorf("migration failed for store %q: %w", conn.Config.Name, err)
		}
	}
	return nil
}

// PrimaryStore returns the authoritative store
func (m *Manager) PrimaryStore() *Store {
	return NewStore(m.primary.Config.Name, m.primary.DB, m.clock, m.logger)
}

// SecondaryStore returns the legacy store, or nil when running single-store
func (m *Manager) SecondaryStore() *Store {
	if m.secondary == nil {
		return nil
	}
	return NewStore(m.secondary.Config.Name, m.secondary.DB, m.clock, m.logger)
}

// Close closes every open connection, returning the first error seen
func (m *Manager) Close() error {
	var firstErr error
	for _, conn := range m.connections() {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) connections() []*Connection {
	conns := []*Connection{m.primary}
	if m.secondary != nil {
		conns = append(conns, m.secondary)
	}
	return conns
}
