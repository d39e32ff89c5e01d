package logs

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Service reads persisted server log partitions
type Service struct {
	storage interfaces.PartitionStorage[models.ServerEvent]
	logger  arbor.ILogger
}

// NewService creates a read-side service over the same storage the queue writes to
func NewService(storage interfaces.PartitionStorage[models.ServerEvent], logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// ListDates returns the dates that have a partition, newest first
func (s *Service) ListDates(ctx context.Context) ([]string, error) {
	keys, err := s.storage.ListPartitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list server log dates: %w", err)
	}

	dates := make([]string, 0, len(keys))
	for _, key := range keys {
		if IsPartitionKey(key) {
			dates = append(dates, key)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// GetEvents returns the events of one day in write order, filtered.
// A day without a partition yields an empty list.
func (s *Service) GetEvents(ctx context.Context, date string, filter interfaces.ServerLogFilter) ([]models.ServerEvent, error) {
	if !IsPartitionKey(date) {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrInvalidPartitionKey, date)
	}

	events, err := s.storage.ReadPartition(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to read server log partition %s: %w", date, err)
	}

	filtered := make([]models.ServerEvent, 0, len(events))
	for _, event := range events {
		if matches(event, filter) {
			filtered = append(filtered, event)
		}
	}

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[len(filtered)-filter.Limit:]
	}

	s.logger.Debug().
		Str("date", date).
		Int("total", len(events)).
		Int("returned", len(filtered)).
		Msg("Server log partition read")

	return filtered, nil
}

func matches(event models.ServerEvent, filter interfaces.ServerLogFilter) bool {
	if len(filter.Levels) > 0 {
		found := false
		for _, level := range filter.Levels {
			if event.Level == level {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Sources) > 0 {
		found := false
		for _, source := range filter.Sources {
			if event.Source == source {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var _ interfaces.ServerLogService = (*Service)(nil)
