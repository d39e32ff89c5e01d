package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestSafeGo_RecoversAndReports(t *testing.T) {
	reported := make(chan string, 1)
	SetPanicReporter(func(goroutine string, panicVal interface{}, stack string) {
		reported <- goroutine
	})
	defer SetPanicReporter(nil)

	before := GetGoroutineCount()
	SafeGo(arbor.NewNoOpLogger(), "exploding-task", func() {
		panic("boom")
	})

	select {
	case name := <-reported:
		assert.Equal(t, "exploding-task", name)
	case <-time.After(5 * time.Second):
		t.Fatal("panic was not reported")
	}
	assert.Equal(t, before+1, GetGoroutineCount())
}

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	SafeGo(nil, "quiet-task", func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("function did not run")
	}
}
