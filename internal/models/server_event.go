package models

import (
	"errors"
	"fmt"
	"time"
)

// ProcessSource identifies the subsystem that produced a server event
type ProcessSource string

const (
	SourceAuthServer        ProcessSource = "AUTH_SERVER"
	SourceAPIRouter         ProcessSource = "API_ROUTER"
	SourceDatabaseConnector ProcessSource = "DATABASE_CONNECTOR"
	SourceSystemMonitor     ProcessSource = "SYSTEM_MONITOR"
	SourceImageProcessor    ProcessSource = "IMAGE_PROCESSOR"
)

// AllProcessSources lists every valid source in declaration order
var AllProcessSources = []ProcessSource{
	SourceAuthServer,
	SourceAPIRouter,
	SourceDatabaseConnector,
	SourceSystemMonitor,
	SourceImageProcessor,
}

// IsValid reports whether s is one of the known sources
func (s ProcessSource) IsValid() bool {
	for _, known := range AllProcessSources {
		if s == known {
			return true
		}
	}
	return false
}

// EventLevel is the severity of a server event
type EventLevel string

const (
	LevelInfo  EventLevel = "INFO"
	LevelWarn  EventLevel = "WARN"
	LevelError EventLevel = "ERROR"
	LevelFatal EventLevel = "FATAL"
)

// AllEventLevels lists every valid level from least to most severe
var AllEventLevels = []EventLevel{LevelInfo, LevelWarn, LevelError, LevelFatal}

// IsValid reports whether l is one of the known levels
func (l EventLevel) IsValid() bool {
	return l.Rank() >= 0
}

// Rank orders levels by severity. Unknown levels rank -1.
func (l EventLevel) Rank() int {
	for i, known := range AllEventLevels {
		if l == known {
			return i
		}
	}
	return -1
}

// EventError carries structured error detail for a server event
type EventError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// NewEventError builds an EventError from a Go error.
// Name is the dynamic type of the innermost wrapped error.
func NewEventError(err error) *EventError {
	if err == nil {
		return nil
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return &EventError{
		Name:    fmt.Sprintf("%T", root),
		Message: err.Error(),
	}
}

// ServerEvent is a single server log record persisted to a day partition.
//
// On disk each partition is a JSON array of these objects:
//
//	{"id": "...", "timestamp": "2024-01-01T10:00:00Z", "source": "API_ROUTER",
//	 "level": "ERROR", "message": "...", "context": {...}, "error": {...}}
type ServerEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Source    ProcessSource          `json:"source"`
	Level     EventLevel             `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Error     *EventError            `json:"error,omitempty"`
}

// Clone returns a copy that shares no mutable state with e
func (e ServerEvent) Clone() ServerEvent {
	out := e
	if e.Context != nil {
		out.Context = make(map[string]interface{}, len(e.Context))
		for k, v := range e.Context {
			out.Context[k] = v
		}
	}
	if e.Error != nil {
		detail := *e.Error
		out.Error = &detail
	}
	return out
}
