package events

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// NewLoggerSubscriber creates an event handler that traces events at debug level
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case models.ServerEvent:
			logEvent = logEvent.
				Str("event_id", payload.ID).
				Str("source", string(payload.Source)).
				Str("level", string(payload.Level))
		case models.AuditEvent:
			logEvent = logEvent.
				Str("audit_type", string(payload.EventType)).
				Str("title", payload.Title)
		}

		logEvent.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the debug logger to every known event type
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range []interfaces.EventType{
		interfaces.EventServerLog,
		interfaces.EventAuditLog,
	} {
		if _, err := eventService.Subscribe(eventType, subscriber); err != nil {
			return err
		}
	}

	return nil
}
