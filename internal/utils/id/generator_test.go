package id

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewSessionID(), "session-"))
	assert.True(t, strings.HasPrefix(NewConfirmationID(), "confirm-"))
	assert.True(t, strings.HasPrefix(NewRequestID(), "req-"))
	assert.True(t, strings.HasPrefix(NewMemoryID(), "mem-"))
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		generated := NewConfirmationID()
		assert.False(t, seen[generated], "duplicate id %s", generated)
		seen[generated] = true
	}
}

func TestUUIDv7Strategy(t *testing.T) {
	SetStrategy(StrategyUUIDv7)
	defer SetStrategy(StrategyKSUID)

	generated := NewSessionID()
	assert.True(t, strings.HasPrefix(generated, "session-"))
	// UUID bodies carry dashes; KSUIDs do not.
	assert.Equal(t, 5, strings.Count(generated, "-"))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, SessionIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithSessionID(ctx, "session-abc")
	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "session-abc", SessionIDFromContext(ctx))
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))

	// Empty values do not overwrite.
	ctx = WithSessionID(ctx, "")
	assert.Equal(t, "session-abc", SessionIDFromContext(ctx))
}
