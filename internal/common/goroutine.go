package common

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"
)

// PanicReporter receives panics recovered by SafeGo
type PanicReporter func(goroutine string, panicVal interface{}, stack string)

var (
	goroutineCounter int64

	reporterMu    sync.RWMutex
	panicReporter PanicReporter
)

// GetGoroutineCount returns the number of goroutines spawned via SafeGo
func GetGoroutineCount() int64 {
	return atomic.LoadInt64(&goroutineCounter)
}

// SetPanicReporter installs a hook called for every panic SafeGo recovers.
// Pass nil to remove it.
func SetPanicReporter(reporter PanicReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	panicReporter = reporter
}

// SafeGo runs a function in a goroutine with panic recovery.
// Panics are logged and reported but don't crash the service.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	atomic.AddInt64(&goroutineCounter, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := GetStackTrace()

				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stack).
						Msg("Recovered from panic in goroutine - continuing service operation")
				} else {
					fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stack)
				}

				reporterMu.RLock()
				report := panicReporter
				reporterMu.RUnlock()
				if report != nil {
					report(name, r, stack)
				}
			}
		}()

		fn()
	}()
}
