package common

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordID(t *testing.T) {
	id := NewRecordID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.NotEqual(t, id, NewRecordID())
}

func TestNewThoughtID(t *testing.T) {
	now := time.UnixMilli(1704067200123)
	id := NewThoughtID(now)

	assert.Regexp(t, regexp.MustCompile(`^thought-1704067200123-[a-z0-9]{9}$`), id)
	assert.NotEqual(t, id, NewThoughtID(now))
}
