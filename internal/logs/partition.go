package logs

import (
	"time"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// PartitionLayout is the date format of partition keys
const PartitionLayout = "2006-01-02"

// PartitionKey truncates t to its calendar day in loc and formats it as YYYY-MM-DD.
// A nil loc means process local time.
func PartitionKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(PartitionLayout)
}

// IsPartitionKey reports whether key is a well-formed YYYY-MM-DD date
func IsPartitionKey(key string) bool {
	return interfaces.ValidatePartitionKey(key) == nil
}

// partitionGroup is the slice of a batch that lands in one partition
type partitionGroup struct {
	key    string
	events []models.ServerEvent
}

// groupByPartition splits a batch into per-day groups.
// Groups are returned in order of first appearance and keep FIFO order inside.
func groupByPartition(batch []models.ServerEvent, loc *time.Location) []partitionGroup {
	index := make(map[string]int)
	var groups []partitionGroup
	for _, event := range batch {
		key := PartitionKey(event.Timestamp, loc)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, partitionGroup{key: key})
		}
		groups[i].events = append(groups[i].events, event)
	}
	return groups
}
