package semantic

import (
	"fmt"
	"time"
)

// Month is a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM label.
func ParseMonth(label string) (Month, error) {
	t, err := time.Parse("2006-01", label)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", label, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Index counts months from year zero; differences of indexes are whole
// calendar months regardless of month length.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Since returns the number of whole calendar months from earlier to m.
func (m Month) Since(earlier Month) int {
	return m.Index() - earlier.Index()
}

func (m Month) Before(other Month) bool {
	return m.Index() < other.Index()
}

// Label formats the month as YYYY-MM.
func (m Month) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) YearLabel() string {
	return fmt.Sprintf("%04d", m.Year)
}

// Quarter is ceil(month/3).
func (m Month) Quarter() int {
	return (int(m.Month) + 2) / 3
}

func (m Month) QuarterLabel() string {
	return fmt.Sprintf("Q%d", m.Quarter())
}

// YearQuarter formats the quarter as YYYY-Qn.
func (m Month) YearQuarter() string {
	return m.YearLabel() + "-" + m.QuarterLabel()
}

// DateOf returns the UTC calendar date of t as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
