package logs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

var (
	// ErrQueueNotStarted is returned by Flush before Start has been called
	ErrQueueNotStarted = errors.New("server log queue not started")
)

// Observer is called with a copy of every accepted event at enqueue time,
// before and regardless of persistence.
type Observer func(event models.ServerEvent)

// QueueOption configures an EventQueue
type QueueOption func(*EventQueue)

// WithLocation sets the timezone used to derive partition keys (default: time.Local)
func WithLocation(loc *time.Location) QueueOption {
	return func(q *EventQueue) {
		if loc != nil {
			q.location = loc
		}
	}
}

// WithClock replaces the wall clock used to default timestamps
func WithClock(clock func() time.Time) QueueOption {
	return func(q *EventQueue) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// WithIDGenerator replaces the UUID generator used to default IDs
func WithIDGenerator(fn func() string) QueueOption {
	return func(q *EventQueue) {
		if fn != nil {
			q.newID = fn
		}
	}
}

// WithObserver registers an enqueue-time observer
func WithObserver(obs Observer) QueueOption {
	return func(q *EventQueue) {
		if obs != nil {
			q.observers = append(q.observers, obs)
		}
	}
}

// QueueStats is a point-in-time snapshot of queue counters
type QueueStats struct {
	Enqueued  int64 `json:"enqueued"`
	Persisted int64 `json:"persisted"`
	Dropped   int64 `json:"dropped"`
	Batches   int64 `json:"batches"`
	Pending   int   `json:"pending"`
	Draining  bool  `json:"draining"`
}

// EventQueue accepts server events from any goroutine without blocking on I/O
// and persists them in batches to day partitions.
//
// A single worker goroutine owns draining, so at most one drain pass runs at a
// time. Producers append to the pending slice under a mutex and poke a wake
// channel of capacity one; repeated pokes while the worker is busy collapse
// into a single pending wake-up, and a poke that lands after the worker's final
// empty check is still buffered, so no wake-up is lost.
//
// Delivery is at-most-once: a batch is removed from the pending slice before it
// is written, and a failed partition write is logged and dropped.
type EventQueue struct {
	storage   interfaces.PartitionStorage[models.ServerEvent]
	logger    arbor.ILogger
	location  *time.Location
	clock     func() time.Time
	newID     func() string
	observers []Observer

	mu      sync.Mutex
	pending []models.ServerEvent
	stopped bool

	wake     chan struct{}
	flushReq chan chan struct{}
	done     chan struct{}
	exited   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	draining  atomic.Bool
	enqueued  atomic.Int64
	persisted atomic.Int64
	dropped   atomic.Int64
	batches   atomic.Int64
}

// NewEventQueue creates a queue writing to storage. Call Start to begin draining.
func NewEventQueue(storage interfaces.PartitionStorage[models.ServerEvent], logger arbor.ILogger, opts ...QueueOption) *EventQueue {
	q := &EventQueue{
		storage:  storage,
		logger:   logger,
		location: time.Local,
		clock:    time.Now,
		newID:    uuid.NewString,
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the drain worker. Calling Start more than once has no effect.
func (q *EventQueue) Start() {
	q.startOnce.Do(func() {
		q.started.Store(true)
		common.SafeGo(q.logger, "server-log-queue", q.run)
		q.logger.Debug().Str("location", q.location.String()).Msg("Server log queue started")
	})
}

// Enqueue accepts an event for persistence. It never blocks on I/O and never fails.
// A missing ID is generated and a zero Timestamp is set to the current time.
func (q *EventQueue) Enqueue(event models.ServerEvent) {
	record := event.Clone()
	if record.ID == "" {
		record.ID = q.newID()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = q.clock()
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		q.dropped.Add(1)
		q.logger.Warn().
			Str("event_id", record.ID).
			Str("source", string(record.Source)).
			Msg("Server event received after queue stopped - dropped")
		return
	}
	q.pending = append(q.pending, record)
	q.mu.Unlock()
	q.enqueued.Add(1)

	q.notify(record)

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Log enqueues an event built from its parts
func (q *EventQueue) Log(source models.ProcessSource, level models.EventLevel, message string, context map[string]interface{}) {
	q.Enqueue(models.ServerEvent{
		Source:  source,
		Level:   level,
		Message: message,
		Context: context,
	})
}

// LogError enqueues an ERROR event carrying the detail of err
func (q *EventQueue) LogError(source models.ProcessSource, message string, err error, context map[string]interface{}) {
	q.Enqueue(models.ServerEvent{
		Source:  source,
		Level:   models.LevelError,
		Message: message,
		Context: context,
		Error:   models.NewEventError(err),
	})
}

// Flush blocks until every event enqueued before the call has been drained
func (q *EventQueue) Flush(ctx context.Context) error {
	if !q.started.Load() {
		return ErrQueueNotStarted
	}

	ack := make(chan struct{})
	select {
	case q.flushReq <- ack:
	case <-q.exited:
		// Stop drained everything accepted before it
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects further events, drains what is pending and stops the worker.
// It returns early with ctx's error if the final drain does not finish in time.
func (q *EventQueue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		close(q.done)
	})

	if !q.started.Load() {
		q.drain()
		return nil
	}

	select {
	case <-q.exited:
		stats := q.Stats()
		q.logger.Info().
			Int64("persisted", stats.Persisted).
			Int64("dropped", stats.Dropped).
			Msg("Server log queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("server log queue stop: %w", ctx.Err())
	}
}

// Stats returns the current counters
func (q *EventQueue) Stats() QueueStats {
	q.mu.Lock()
	pending := len(q.pending)
	q.mu.Unlock()

	return QueueStats{
		Enqueued:  q.enqueued.Load(),
		Persisted: q.persisted.Load(),
		Dropped:   q.dropped.Load(),
		Batches:   q.batches.Load(),
		Pending:   pending,
		Draining:  q.draining.Load(),
	}
}

// run is the worker loop; it is the only caller of drain once started
func (q *EventQueue) run() {
	defer close(q.exited)

	for {
		select {
		case <-q.wake:
			q.drain()
		case ack := <-q.flushReq:
			q.drain()
			close(ack)
		case <-q.done:
			q.drain()
			return
		}
	}
}

// drain writes batches until the pending slice is observed empty.
// Events that arrive while a batch is being written are picked up by the next iteration.
func (q *EventQueue) drain() {
	q.draining.Store(true)
	defer q.draining.Store(false)

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("Server log drain failed - pass abandoned")
		}
	}()

	ctx := context.Background()
	for {
		batch := q.takeBatch()
		if len(batch) == 0 {
			return
		}
		q.batches.Add(1)

		for _, group := range groupByPartition(batch, q.location) {
			q.writeGroup(ctx, group)
		}
	}
}

// takeBatch claims the entire pending slice
func (q *EventQueue) takeBatch() []models.ServerEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = nil
	return batch
}

// writeGroup appends one group to its partition. Failures stay local to the group.
func (q *EventQueue) writeGroup(ctx context.Context, group partitionGroup) {
	existing, err := q.storage.ReadPartition(ctx, group.key)
	if err != nil {
		q.logger.Warn().
			Err(err).
			Str("partition", group.key).
			Msg("Unreadable server log partition - starting from empty")
		existing = nil
	}

	merged := make([]models.ServerEvent, 0, len(existing)+len(group.events))
	merged = append(merged, existing...)
	merged = append(merged, group.events...)

	if err := q.storage.WritePartition(ctx, group.key, merged); err != nil {
		q.dropped.Add(int64(len(group.events)))
		q.logger.Error().
			Err(err).
			Str("partition", group.key).
			Int("event_count", len(group.events)).
			Msg("Failed to write server log partition - events dropped")
		return
	}

	q.persisted.Add(int64(len(group.events)))
}

// notify hands a copy of event to each observer; observer panics are contained
func (q *EventQueue) notify(event models.ServerEvent) {
	if len(q.observers) == 0 {
		return
	}
	snapshot := event.Clone()
	for _, obs := range q.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.logger.Warn().
						Str("panic", fmt.Sprintf("%v", r)).
						Msg("Server log observer panicked")
				}
			}()
			obs(snapshot)
		}()
	}
}

var _ interfaces.ServerEventLogger = (*EventQueue)(nil)
