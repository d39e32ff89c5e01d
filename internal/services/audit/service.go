package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// TimestampLayout matches JavaScript's Date.toISOString output
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Service appends audit events to day partitions.
// Writes are synchronous and serialized; failures are logged, never returned.
type Service struct {
	storage  interfaces.PartitionStorage[models.AuditEvent]
	events   interfaces.EventService
	logger   arbor.ILogger
	location *time.Location
	clock    func() time.Time

	mu sync.Mutex
}

// NewService creates an audit service. events may be nil.
func NewService(storage interfaces.PartitionStorage[models.AuditEvent], events interfaces.EventService, logger arbor.ILogger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		storage:  storage,
		events:   events,
		logger:   logger,
		location: loc,
		clock:    time.Now,
	}
}

// LogEvent records event in the partition of its timestamp.
// A missing timestamp is set to now and a missing severity to info.
func (s *Service) LogEvent(ctx context.Context, event models.AuditEvent) {
	now := s.clock()
	if event.Timestamp == "" {
		event.Timestamp = now.UTC().Format(TimestampLayout)
	}
	if event.Severity == "" {
		event.Severity = models.SeverityInfo
	}

	at, err := time.Parse(time.RFC3339Nano, event.Timestamp)
	if err != nil {
		s.logger.Warn().
			Str("timestamp", event.Timestamp).
			Msg("Audit event timestamp unparseable - filing under today")
		at = now
	}
	key := at.In(s.location).Format("2006-01-02")

	if err := s.appendEvent(ctx, key, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", string(event.EventType)).
			Str("partition", key).
			Msg("Failed to log audit event")
		return
	}

	actor := "system"
	if name := event.User.DisplayName(); name != "" {
		actor = name
	}
	s.logger.Info().
		Str("user", actor).
		Msgf("[AUDIT] %s: %s", event.EventType, event.Title)

	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventAuditLog,
			Payload: event,
		})
	}
}

func (s *Service) appendEvent(ctx context.Context, key string, event models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.storage.ReadPartition(ctx, key)
	if err != nil {
		// An unreadable day file is started over rather than blocking the trail
		s.logger.Warn().Err(err).Str("partition", key).Msg("Unreadable audit partition - starting from empty")
		existing = nil
	}

	return s.storage.WritePartition(ctx, key, append(existing, event))
}

// ListDates returns the dates that have audit events, newest first
func (s *Service) ListDates(ctx context.Context) ([]string, error) {
	keys, err := s.storage.ListPartitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit dates: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// GetEvents returns the audit events of one day in the order they were recorded
func (s *Service) GetEvents(ctx context.Context, date string) ([]models.AuditEvent, error) {
	if err := interfaces.ValidatePartitionKey(date); err != nil {
		return nil, err
	}
	events, err := s.storage.ReadPartition(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit events for %s: %w", date, err)
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	return events, nil
}

var _ interfaces.AuditService = (*Service)(nil)
