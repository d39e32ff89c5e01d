package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
)

const partitionExt = ".json"

// PartitionStore keeps each partition as <dir>/<key>.json holding a pretty-printed JSON array.
// Writes replace the file atomically via a temp file and rename.
type PartitionStore[T any] struct {
	dir    string
	logger arbor.ILogger
}

// NewPartitionStore creates a store rooted at dir. The directory is created on first write.
func NewPartitionStore[T any](dir string, logger arbor.ILogger) *PartitionStore[T] {
	return &PartitionStore[T]{
		dir:    dir,
		logger: logger,
	}
}

func (s *PartitionStore[T]) path(key string) string {
	return filepath.Join(s.dir, key+partitionExt)
}

// ReadPartition returns the stored records for key, or (nil, nil) if the file does not exist
func (s *PartitionStore[T]) ReadPartition(ctx context.Context, key string) ([]T, error) {
	if err := interfaces.ValidatePartitionKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", key, err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse partition %s: %w", key, err)
	}
	return records, nil
}

// WritePartition replaces the partition file with records
func (s *PartitionStore[T]) WritePartition(ctx context.Context, key string, records []T) error {
	if err := interfaces.ValidatePartitionKey(key); err != nil {
		return err
	}
	if records == nil {
		records = []T{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode partition %s: %w", key, err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create partition directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for partition %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write partition %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close partition %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace partition %s: %w", key, err)
	}

	s.logger.Debug().
		Str("partition", key).
		Int("records", len(records)).
		Str("dir", s.dir).
		Msg("Partition written")

	return nil
}

// ListPartitions returns the keys of all partition files, oldest first
func (s *PartitionStore[T]) ListPartitions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, partitionExt) {
			continue
		}
		key := strings.TrimSuffix(name, partitionExt)
		if interfaces.ValidatePartitionKey(key) != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// DeletePartition removes the partition file. Missing files are ignored.
func (s *PartitionStore[T]) DeletePartition(ctx context.Context, key string) error {
	if err := interfaces.ValidatePartitionKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete partition %s: %w", key, err)
	}
	return nil
}
