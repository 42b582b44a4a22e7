package semantic

import (
	"cmp"
	"slices"

	"salla-analytics/internal/errors"
)

// ValidateTopN fails fast on a non-positive limit.
func ValidateTopN(name string, n int) error {
	if n < 1 {
		return errors.InvalidArgument("%s must be >= 1, got %d", name, n)
	}
	return nil
}

// TopN returns the n rows with the greatest value. Equal values keep their
// input order; asking for more rows than exist returns all of them.
func TopN[T any](rows []T, n int, value func(T) float64) ([]T, error) {
	if err := ValidateTopN("topN", n); err != nil {
		return nil, err
	}
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(value(b), value(a))
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// Ranked pairs a row with its 1-based position inside its partition.
type Ranked[T any] struct {
	Row  T
	Rank int
}

// RankWithin ranks rows inside each partition by value descending and keeps
// ranks <= n. Ranks are consecutive and distinct; ties resolve to input
// order. Output is ordered by partition key, then rank.
func RankWithin[T any](rows []T, n int, partition func(T) string, value func(T) float64) ([]Ranked[T], error) {
	if err := ValidateTopN("topN", n); err != nil {
		return nil, err
	}

	parts := make(map[string][]T)
	keys := make([]string, 0)
	for _, r := range rows {
		k := partition(r)
		if _, ok := parts[k]; !ok {
			keys = append(keys, k)
		}
		parts[k] = append(parts[k], r)
	}
	slices.Sort(keys)

	out := make([]Ranked[T], 0, len(rows))
	for _, k := range keys {
		top, err := TopN(parts[k], n, value)
		if err != nil {
			return nil, err
		}
		for i, r := range top {
			out = append(out, Ranked[T]{Row: r, Rank: i + 1})
		}
	}
	return out, nil
}
