package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

func testConfig(t *testing.T, storageType string) *common.Config {
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.Storage.Type = storageType
	config.Storage.Badger.Path = filepath.Join(dir, "badger")
	config.Storage.Filesystem.ServerLogs = filepath.Join(dir, "server-logs")
	config.Storage.Filesystem.AuditLogs = filepath.Join(dir, "audit-logs")
	return config
}

func TestNewStorageManager(t *testing.T) {
	for _, storageType := range []string{"filesystem", "badger"} {
		t.Run(storageType, func(t *testing.T) {
			manager, err := NewStorageManager(arbor.NewNoOpLogger(), testConfig(t, storageType))
			require.NoError(t, err)
			defer manager.Close()

			ctx := context.Background()
			event := models.ServerEvent{
				ID:        "e1",
				Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
				Source:    models.SourceAPIRouter,
				Level:     models.LevelError,
				Message:   "failed",
				Context:   map[string]interface{}{"status": float64(500)},
				Error:     &models.EventError{Name: "*fs.PathError", Message: "open: denied"},
			}
			require.NoError(t, manager.ServerEvents().WritePartition(ctx, "2024-01-01", []models.ServerEvent{event}))

			got, err := manager.ServerEvents().ReadPartition(ctx, "2024-01-01")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, event.ID, got[0].ID)
			assert.True(t, event.Timestamp.Equal(got[0].Timestamp))
			assert.Equal(t, event.Context, got[0].Context)
			assert.Equal(t, event.Error, got[0].Error)

			audit, err := manager.AuditEvents().ReadPartition(ctx, "2024-01-01")
			require.NoError(t, err)
			assert.Empty(t, audit)
		})
	}
}

func TestNewStorageManager_UnknownType(t *testing.T) {
	_, err := NewStorageManager(arbor.NewNoOpLogger(), testConfig(t, "sqlite"))
	assert.Error(t, err)
}
