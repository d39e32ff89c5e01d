package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ternarybob/folio/internal/models"
)

const maxStackDump = 32 << 20

var (
	crashMu  sync.Mutex
	crashDir = "logs"
)

// InstallCrashHandler sets the directory crash reports are written to and creates it.
// Call it first thing in main, paired with a deferred RecoverWithCrashFile.
func InstallCrashHandler(logDir string) {
	crashMu.Lock()
	defer crashMu.Unlock()

	if logDir != "" {
		crashDir = logDir
	}
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: cannot create %s: %v\n", crashDir, err)
	}
}

// NewCrashEvent describes a process crash as a FATAL SYSTEM_MONITOR server event,
// the same shape the server log partitions hold.
func NewCrashEvent(panicVal interface{}, stack string, at time.Time) models.ServerEvent {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return models.ServerEvent{
		ID:        NewRecordID(),
		Timestamp: at,
		Source:    models.SourceSystemMonitor,
		Level:     models.LevelFatal,
		Message:   fmt.Sprintf("Process crashed: %v", panicVal),
		Context: map[string]interface{}{
			"version":     GetFullVersion(),
			"goroutines":  runtime.NumGoroutine(),
			"goos":        runtime.GOOS,
			"goarch":      runtime.GOARCH,
			"alloc_mb":    mem.Alloc >> 20,
			"sys_mb":      mem.Sys >> 20,
			"num_gc":      mem.NumGC,
			"all_stacks":  allStacks(),
			"crash_dir":   crashDirectory(),
			"report_time": at.Format(time.RFC3339),
		},
		Error: &models.EventError{
			Name:    "panic",
			Message: fmt.Sprint(panicVal),
			Stack:   stack,
		},
	}
}

// WriteCrashFile writes crash-<timestamp>.json into the crash directory and returns its path.
// The in-memory queue is gone by the time this runs, so the report goes straight to disk
// and is echoed to stderr when the file cannot be written.
func WriteCrashFile(panicVal interface{}, stack string) string {
	now := time.Now()
	event := NewCrashEvent(panicVal, stack, now)

	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: %v\n%s\n", panicVal, stack)
		return ""
	}

	path := filepath.Join(crashDirectory(), "crash-"+now.Format("2006-01-02T15-04-05")+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: cannot write %s: %v\n%s\n", path, err, data)
		return ""
	}

	fmt.Fprintf(os.Stderr, "\nFATAL: %v (report: %s)\n", panicVal, path)
	return path
}

// RecoverWithCrashFile recovers a panic in the calling goroutine, writes a crash report
// and exits with status 1. Use as: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}

// GetStackTrace returns the stack of the calling goroutine
func GetStackTrace() string {
	buf := make([]byte, 8192)
	return string(buf[:runtime.Stack(buf, false)])
}

func allStacks() string {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxStackDump {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

func crashDirectory() string {
	crashMu.Lock()
	defer crashMu.Unlock()
	return crashDir
}
