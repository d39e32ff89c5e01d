package logs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

func sampleDay() []models.ServerEvent {
	return []models.ServerEvent{
		{ID: "1", Timestamp: at("2024-01-01", "09:00:00"), Source: models.SourceAuthServer, Level: models.LevelInfo, Message: "login"},
		{ID: "2", Timestamp: at("2024-01-01", "09:01:00"), Source: models.SourceAPIRouter, Level: models.LevelError, Message: "create failed"},
		{ID: "3", Timestamp: at("2024-01-01", "09:02:00"), Source: models.SourceAPIRouter, Level: models.LevelWarn, Message: "slow"},
		{ID: "4", Timestamp: at("2024-01-01", "09:03:00"), Source: models.SourceImageProcessor, Level: models.LevelError, Message: "too large"},
	}
}

func TestService_ListDates(t *testing.T) {
	store := new(MockPartitionStorage)
	store.On("ListPartitions", mock.Anything).Return([]string{"2024-01-01", "2024-01-03", "notes", "2024-01-02"}, nil)

	service := NewService(store, arbor.NewNoOpLogger())
	dates, err := service.ListDates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-03", "2024-01-02", "2024-01-01"}, dates)
	store.AssertExpectations(t)
}

func TestService_ListDatesStorageError(t *testing.T) {
	store := new(MockPartitionStorage)
	store.On("ListPartitions", mock.Anything).Return(nil, errors.New("permission denied"))

	service := NewService(store, arbor.NewNoOpLogger())
	_, err := service.ListDates(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestService_GetEvents(t *testing.T) {
	store := new(MockPartitionStorage)
	store.On("ReadPartition", mock.Anything, "2024-01-01").Return(sampleDay(), nil)
	service := NewService(store, arbor.NewNoOpLogger())
	ctx := context.Background()

	t.Run("no filter keeps write order", func(t *testing.T) {
		events, err := service.GetEvents(ctx, "2024-01-01", interfaces.ServerLogFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3", "4"}, eventIDs(events))
	})

	t.Run("levels", func(t *testing.T) {
		events, err := service.GetEvents(ctx, "2024-01-01", interfaces.ServerLogFilter{
			Levels: []models.EventLevel{models.LevelError},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "4"}, eventIDs(events))
	})

	t.Run("sources and levels", func(t *testing.T) {
		events, err := service.GetEvents(ctx, "2024-01-01", interfaces.ServerLogFilter{
			Levels:  []models.EventLevel{models.LevelError, models.LevelWarn},
			Sources: []models.ProcessSource{models.SourceAPIRouter},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "3"}, eventIDs(events))
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		events, err := service.GetEvents(ctx, "2024-01-01", interfaces.ServerLogFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "4"}, eventIDs(events))
	})
}

func TestService_GetEventsMissingDay(t *testing.T) {
	store := new(MockPartitionStorage)
	store.On("ReadPartition", mock.Anything, "2023-12-31").Return(nil, nil)

	service := NewService(store, arbor.NewNoOpLogger())
	events, err := service.GetEvents(context.Background(), "2023-12-31", interfaces.ServerLogFilter{})

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestService_GetEventsRejectsBadDate(t *testing.T) {
	store := new(MockPartitionStorage)
	service := NewService(store, arbor.NewNoOpLogger())

	_, err := service.GetEvents(context.Background(), "../secrets", interfaces.ServerLogFilter{})

	assert.ErrorIs(t, err, interfaces.ErrInvalidPartitionKey)
	store.AssertNotCalled(t, "ReadPartition", mock.Anything, mock.Anything)
}
