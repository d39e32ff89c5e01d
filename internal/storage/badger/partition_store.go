package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// partitionRecord is one stored partition. Records holds the JSON array verbatim.
type partitionRecord struct {
	Namespace string
	Partition string
	Records   json.RawMessage
	UpdatedAt time.Time
}

// PartitionStore keeps partitions as badgerhold records keyed "<namespace>:<key>".
// Several namespaces can share one database.
type PartitionStore[T any] struct {
	db        *BadgerDB
	namespace string
	logger    arbor.ILogger
}

// NewPartitionStore creates a store for namespace on db
func NewPartitionStore[T any](db *BadgerDB, namespace string, logger arbor.ILogger) *PartitionStore[T] {
	return &PartitionStore[T]{
		db:        db,
		namespace: namespace,
		logger:    logger,
	}
}

func (s *PartitionStore[T]) storeKey(key string) string {
	return s.namespace + ":" + key
}

// ReadPartition returns the stored records for key, or (nil, nil) if absent
func (s *PartitionStore[T]) ReadPartition(ctx context.Context, key string) ([]T, error) {
	if err := interfaces.ValidatePartitionKey(key); err != nil {
		return nil, err
	}

	var record partitionRecord
	err := s.db.Store().Get(s.storeKey(key), &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partition %s: %w", key, err)
	}

	var records []T
	if len(record.Records) > 0 {
		if err := json.Unmarshal(record.Records, &records); err != nil {
			return nil, fmt.Errorf("failed to parse partition %s: %w", key, err)
		}
	}
	return records, nil
}

// WritePartition replaces the stored partition
func (s *PartitionStore[T]) WritePartition(ctx context.Context, key string, records []T) error {
	if err := interfaces.ValidatePartitionKey(key); err != nil {
		return err
	}
	if records == nil {
		records = []T{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode partition %s: %w", key, err)
	}

	record := partitionRecord{
		Namespace: s.namespace,
		Partition: key,
		Records:   data,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(s.storeKey(key), &record); err != nil {
		return fmt.Errorf("failed to upsert partition %s: %w", key, err)
	}
	return nil
}

// ListPartitions returns the partition keys of this namespace, oldest first
func (s *PartitionStore[T]) ListPartitions(ctx context.Context) ([]string, error) {
	var records []partitionRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Namespace").Eq(s.namespace).SortBy("Partition"))
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Partition)
	}
	return keys, nil
}

// DeletePartition removes a partition. Missing partitions are ignored.
func (s *PartitionStore[T]) DeletePartition(ctx context.Context, key string) error {
	if err := interfaces.ValidatePartitionKey(key); err != nil {
		return err
	}
	err := s.db.Store().Delete(s.storeKey(key), &partitionRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete partition %s: %w", key, err)
	}
	return nil
}
