package tokenutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateFast(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, EstimateFast(""))
	assert.Equal(t, 0, EstimateFast("   "))
	assert.Equal(t, 1, EstimateFast("hi"))

	// Word count dominates for short words.
	assert.GreaterOrEqual(t, EstimateFast("a b c d e f"), 6)

	long := strings.Repeat("abcd", 100)
	assert.GreaterOrEqual(t, EstimateFast(long), 100)
}

func TestCountTokensNonZero(t *testing.T) {
	t.Parallel()

	count := CountTokens("hello world, this is a test sentence")
	assert.Greater(t, count, 0)
	assert.Less(t, count, 40)
}

func TestTruncateToTokens(t *testing.T) {
	t.Parallel()

	short := "short text"
	assert.Equal(t, short, TruncateToTokens(short, 100))
	assert.Equal(t, short, TruncateToTokens(short, 0))

	long := strings.Repeat("some repeated words ", 200)
	truncated := TruncateToTokens(long, 10)
	assert.Less(t, len(truncated), len(long))
	assert.True(t, strings.HasSuffix(truncated, "..."))
}
