package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2023, 1, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"sqlite text", "2023-01-10 10:00:00", want},
		{"iso with T", "2023-01-10T10:00:00", want},
		{"rfc3339", "2023-01-10T10:00:00Z", want},
		{"postgres timestamptz", "2023-01-10 10:00:00+00", want},
		{"offset normalized", "2023-01-10 13:00:00+03:00", want},
		{"fractional seconds", "2023-01-10 10:00:00.250", want.Add(250 * time.Millisecond)},
		{"date only", "2023-01-10", time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("10/01/2023")
	assert.Error(t, err)
}

func TestParseOptionalTimestamp(t *testing.T) {
	empty := "  "
	got, err := parseOptionalTimestamp(&empty)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseOptionalTimestamp(nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
