package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

type entry struct {
	ID      string                 `json:"id"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewNoOpLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPartitionStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewPartitionStore[entry](db, "server_logs", arbor.NewNoOpLogger())
	ctx := context.Background()

	missing, err := store.ReadPartition(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.WritePartition(ctx, "2024-01-01", []entry{
		{ID: "a", Context: map[string]interface{}{"status": float64(500)}},
		{ID: "b"},
	}))

	got, err := store.ReadPartition(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, float64(500), got[0].Context["status"])

	require.NoError(t, store.WritePartition(ctx, "2024-01-01", []entry{{ID: "c"}}))
	got, err = store.ReadPartition(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestPartitionStore_NamespacesAreIsolated(t *testing.T) {
	db := openTestDB(t)
	serverLogs := NewPartitionStore[entry](db, "server_logs", arbor.NewNoOpLogger())
	auditLogs := NewPartitionStore[entry](db, "audit_logs", arbor.NewNoOpLogger())
	ctx := context.Background()

	require.NoError(t, serverLogs.WritePartition(ctx, "2024-01-02", []entry{{ID: "s"}}))
	require.NoError(t, serverLogs.WritePartition(ctx, "2024-01-01", []entry{{ID: "s"}}))
	require.NoError(t, auditLogs.WritePartition(ctx, "2024-03-01", []entry{{ID: "a"}}))

	keys, err := serverLogs.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, keys)

	keys, err = auditLogs.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01"}, keys)

	got, err := auditLogs.ReadPartition(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPartitionStore_Delete(t *testing.T) {
	db := openTestDB(t)
	store := NewPartitionStore[entry](db, "server_logs", arbor.NewNoOpLogger())
	ctx := context.Background()

	require.NoError(t, store.WritePartition(ctx, "2024-01-01", []entry{{ID: "a"}}))
	require.NoError(t, store.DeletePartition(ctx, "2024-01-01"))
	require.NoError(t, store.DeletePartition(ctx, "2024-01-01"))

	keys, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.ErrorIs(t, store.DeletePartition(ctx, "yesterday"), interfaces.ErrInvalidPartitionKey)
}
