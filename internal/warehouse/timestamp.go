package warehouse

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is how timestamps are written to text columns. It keeps
// fractional seconds so validity boundaries survive a round trip.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// ParseTimestamp reads the textual timestamps stored in the warehouse.
// Zoned values are converted to UTC and zone-less values are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// parseOptionalTimestamp treats NULL and empty strings as open-ended.
func parseOptionalTimestamp(value *string) (time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(*value)
}
