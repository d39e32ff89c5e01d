package interfaces

import (
	"context"

	"github.com/ternarybob/folio/internal/models"
)

// ServerEventLogger is the producer side of the server log queue
type ServerEventLogger interface {
	// Enqueue accepts an event; it never blocks on storage and never fails
	Enqueue(event models.ServerEvent)
	Log(source models.ProcessSource, level models.EventLevel, message string, context map[string]interface{})
	LogError(source models.ProcessSource, message string, err error, context map[string]interface{})
}

// ServerLogFilter narrows a partition read
type ServerLogFilter struct {
	Levels  []models.EventLevel
	Sources []models.ProcessSource
	Limit   int // 0 means no limit; newest events are kept
}

// ServerLogService reads persisted server events
type ServerLogService interface {
	ListDates(ctx context.Context) ([]string, error)
	GetEvents(ctx context.Context, date string, filter ServerLogFilter) ([]models.ServerEvent, error)
}

// AuditService records and reads the audit trail
type AuditService interface {
	// LogEvent never fails; storage errors are logged
	LogEvent(ctx context.Context, event models.AuditEvent)
	ListDates(ctx context.Context) ([]string, error)
	GetEvents(ctx context.Context, date string) ([]models.AuditEvent, error)
}
