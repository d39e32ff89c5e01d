package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPartitionKey is returned for keys that are not YYYY-MM-DD dates
var ErrInvalidPartitionKey = errors.New("invalid partition key")

// ValidatePartitionKey rejects anything that is not a YYYY-MM-DD date
func ValidatePartitionKey(key string) error {
	if len(key) != len("2006-01-02") {
		return fmt.Errorf("%w: %q", ErrInvalidPartitionKey, key)
	}
	if _, err := time.Parse("2006-01-02", key); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPartitionKey, key)
	}
	return nil
}

// PartitionStorage persists date-partitioned lists of records.
// Each partition is replaced as a whole on write.
type PartitionStorage[T any] interface {
	// ReadPartition returns the stored records for key, or (nil, nil) if the partition does not exist
	ReadPartition(ctx context.Context, key string) ([]T, error)

	// WritePartition replaces the full content of the partition
	WritePartition(ctx context.Context, key string, records []T) error

	// ListPartitions returns all partition keys in ascending order
	ListPartitions(ctx context.Context) ([]string, error)

	// DeletePartition removes a partition. Missing partitions are not an error.
	DeletePartition(ctx context.Context, key string) error
}

// PartitionPruner is the type-independent part of PartitionStorage used for retention
type PartitionPruner interface {
	ListPartitions(ctx context.Context) ([]string, error)
	DeletePartition(ctx context.Context, key string) error
}
