package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()
	cases := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"2^10", "1024"},
		{"-3 + 5", "2"},
		{"7 % 3", "1"},
		{"2 + 3 * 4", "14"},
		{"2 ^ 3 ^ 2", "512"},
	}
	for _, tc := range cases {
		got, err := calc.Execute(context.Background(), map[string]any{"expression": tc.expr})
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestCalculatorErrors(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()
	for _, expr := range []string{"", "2 +", "1 / 0", "(2 + 3", "two plus two", "2 2"} {
		_, err := calc.Execute(context.Background(), map[string]any{"expression": expr})
		assert.Error(t, err, "expression %q must fail", expr)
	}
}

func TestTextStats(t *testing.T) {
	t.Parallel()

	stats := NewTextStats()
	got, err := stats.Execute(context.Background(), map[string]any{"text": "hello world\nsecond line"})
	require.NoError(t, err)
	assert.Contains(t, got, "words: 4")
	assert.Contains(t, got, "lines: 2")
}
