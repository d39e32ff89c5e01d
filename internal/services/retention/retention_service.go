package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Target is one partitioned log subject to pruning
type Target struct {
	Name    string
	Storage interfaces.PartitionPruner
}

// Result reports the partitions removed by one pass, keyed by target name
type Result struct {
	Cutoff  string              `json:"cutoff"`
	Deleted map[string][]string `json:"deleted"`
}

// Service deletes day partitions older than the configured retention window
type Service struct {
	config   common.RetentionConfig
	targets  []Target
	events   interfaces.ServerEventLogger
	location *time.Location
	clock    func() time.Time
	cron     *cron.Cron
	logger   arbor.ILogger

	mu      sync.Mutex // serializes prune passes
	running bool
}

// NewService creates a retention service. events may be nil.
func NewService(config common.RetentionConfig, targets []Target, events interfaces.ServerEventLogger, loc *time.Location, logger arbor.ILogger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		config:   config,
		targets:  targets,
		events:   events,
		location: loc,
		clock:    time.Now,
		cron:     cron.New(cron.WithLocation(loc)),
		logger:   logger,
	}
}

// Start registers the prune job on the configured schedule. It is a no-op when retention is disabled.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Log retention disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}
	if s.config.Days < 1 {
		return fmt.Errorf("retention days must be at least 1, got %d", s.config.Days)
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Prune(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled log retention failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add retention job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Int("days", s.config.Days).
		Msg("Log retention scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish
func (s *Service) Stop() {
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// Cutoff returns the oldest partition key that is retained
func (s *Service) Cutoff() string {
	days := s.config.Days
	if days < 1 {
		days = 1
	}
	return s.clock().In(s.location).AddDate(0, 0, -days).Format("2006-01-02")
}

// Prune deletes every partition older than the cutoff. Today's partition is never deleted.
// A failure on one partition is logged and does not stop the pass.
func (s *Service) Prune(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.clock().In(s.location).Format("2006-01-02")
	result := &Result{Cutoff: s.Cutoff(), Deleted: make(map[string][]string)}

	var failures int
	total := 0
	for _, target := range s.targets {
		keys, err := target.Storage.ListPartitions(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to list %s partitions: %w", target.Name, err)
		}

		deleted := []string{}
		for _, key := range keys {
			if key >= result.Cutoff || key == today {
				continue
			}
			if err := target.Storage.DeletePartition(ctx, key); err != nil {
				failures++
				s.logger.Warn().Err(err).Str("target", target.Name).Str("partition", key).Msg("Failed to delete partition")
				continue
			}
			deleted = append(deleted, key)
		}
		result.Deleted[target.Name] = deleted
		total += len(deleted)
	}

	s.logger.Info().
		Str("cutoff", result.Cutoff).
		Int("deleted", total).
		Int("failures", failures).
		Msg("Log retention pass complete")

	if s.events != nil {
		s.events.Log(models.SourceSystemMonitor, models.LevelInfo, "Log retention pass complete", map[string]interface{}{
			"cutoff":   result.Cutoff,
			"deleted":  total,
			"failures": failures,
		})
	}

	return result, nil
}
