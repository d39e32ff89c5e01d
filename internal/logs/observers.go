package logs

import (
	"context"
	"fmt"
	"io"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// NewConsoleEcho returns an observer that writes one console line per event
// at or above minLevel, formatted as "[SOURCE] LEVEL: message".
func NewConsoleEcho(w io.Writer, minLevel models.EventLevel, color bool) Observer {
	echo := &plog.Logger{
		Level: plog.TraceLevel,
		Writer: &plog.ConsoleWriter{
			ColorOutput:    color,
			EndWithMessage: true,
			Writer:         w,
		},
	}
	threshold := minLevel.Rank()

	return func(event models.ServerEvent) {
		if event.Level.Rank() < threshold {
			return
		}
		entry := echo.WithLevel(echoLevel(event.Level)).Str("id", event.ID)
		if event.Error != nil {
			entry = entry.Str("error", event.Error.Message)
		}
		entry.Msg(fmt.Sprintf("[%s] %s: %s", event.Source, event.Level, event.Message))
	}
}

// echoLevel maps event levels onto console levels.
// FATAL is printed as an error: a phuslu fatal entry terminates the process.
func echoLevel(level models.EventLevel) plog.Level {
	switch level {
	case models.LevelWarn:
		return plog.WarnLevel
	case models.LevelError, models.LevelFatal:
		return plog.ErrorLevel
	default:
		return plog.InfoLevel
	}
}

// NewEventPublisher returns an observer that republishes events on the event bus
func NewEventPublisher(events interfaces.EventService) Observer {
	return func(event models.ServerEvent) {
		_ = events.Publish(context.Background(), interfaces.Event{
			Type:    interfaces.EventServerLog,
			Payload: event,
		})
	}
}
