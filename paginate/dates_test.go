package paginate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, loc)

	tests := []struct {
		input string
		want  string
	}{
		{"today", "2026-03-15T05:00:00.000Z"},
		{"TODAY", "2026-03-15T05:00:00.000Z"},
		{"yesterday", "2026-03-14T05:00:00.000Z"},
		{"7d", "2026-03-08T05:00:00.000Z"},
		{"2w", "2026-03-01T05:00:00.000Z"},
		{"1m", "2026-02-15T05:00:00.000Z"},
		{"2024-01-15", "2024-01-15T05:00:00.000Z"},
		{"2024-01-15T10:20:30Z", "2024-01-15T10:20:30.000Z"},
		{"2024-01-15T10:20:30.123+02:00", "2024-01-15T08:20:30.123Z"},
		{"2024-01-15T10:20:30", "2024-01-15T15:20:30.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "last week", "7x", "2024-13-45", "d7"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDate(input, time.Now())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid date")
		})
	}
}
