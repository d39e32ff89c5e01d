package common

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/folio/internal/models"
)

func TestNewCrashEvent(t *testing.T) {
	at := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	event := NewCrashEvent(errors.New("boom"), "goroutine 1 [running]:", at)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, at, event.Timestamp)
	assert.Equal(t, models.SourceSystemMonitor, event.Source)
	assert.Equal(t, models.LevelFatal, event.Level)
	assert.Equal(t, "Process crashed: boom", event.Message)
	require.NotNil(t, event.Error)
	assert.Equal(t, "panic", event.Error.Name)
	assert.Equal(t, "goroutine 1 [running]:", event.Error.Stack)
	assert.Contains(t, event.Context["all_stacks"], "goroutine")
}

func TestWriteCrashFile(t *testing.T) {
	previous := crashDirectory()
	t.Cleanup(func() {
		crashMu.Lock()
		crashDir = previous
		crashMu.Unlock()
	})

	dir := t.TempDir()
	InstallCrashHandler(dir)

	path := WriteCrashFile("nil map write", GetStackTrace())
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "crash-"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var event models.ServerEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, models.LevelFatal, event.Level)
	assert.Equal(t, "nil map write", event.Error.Message)
	assert.Contains(t, event.Error.Stack, "TestWriteCrashFile")
}
