package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/storage/badger"
	"github.com/ternarybob/folio/internal/storage/filesystem"
)

const (
	NamespaceServerLogs = "server_logs"
	NamespaceAuditLogs  = "audit_logs"
)

// Manager owns the partition stores selected by configuration
type Manager struct {
	db     *badger.BadgerDB
	server interfaces.PartitionStorage[models.ServerEvent]
	audit  interfaces.PartitionStorage[models.AuditEvent]
	logger arbor.ILogger
}

// NewStorageManager creates the server and audit log stores for config.Storage.Type
func NewStorageManager(logger arbor.ILogger, config *common.Config) (*Manager, error) {
	m := &Manager{logger: logger}

	switch config.Storage.Type {
	case "", "filesystem":
		m.server = filesystem.NewPartitionStore[models.ServerEvent](config.Storage.Filesystem.ServerLogs, logger)
		m.audit = filesystem.NewPartitionStore[models.AuditEvent](config.Storage.Filesystem.AuditLogs, logger)
	case "badger":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, err
		}
		m.db = db
		m.server = badger.NewPartitionStore[models.ServerEvent](db, NamespaceServerLogs, logger)
		m.audit = badger.NewPartitionStore[models.AuditEvent](db, NamespaceAuditLogs, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'filesystem' or 'badger')", config.Storage.Type)
	}

	logger.Info().Str("type", config.Storage.Type).Msg("Storage manager initialized")
	return m, nil
}

// ServerEvents returns the server log partition store
func (m *Manager) ServerEvents() interfaces.PartitionStorage[models.ServerEvent] {
	return m.server
}

// AuditEvents returns the audit log partition store
func (m *Manager) AuditEvents() interfaces.PartitionStorage[models.AuditEvent] {
	return m.audit
}

// Close releases the database, if one was opened
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
