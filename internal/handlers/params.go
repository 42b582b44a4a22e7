package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"salla-analytics/internal/errors"
)

// Bounds for the user-adjustable widget sizes.
const (
	minLimit              = 1
	maxProductLimit       = 50
	maxCategoryLimit      = 50
	minCategoriesPerState = 3
	maxCategoriesPerState = 12
	maxStoreLimit         = 100
)

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return errors.InvalidArgument("%s must be between %d and %d, got %d", name, lo, hi, v)
	}
	return nil
}

// intParam reads an integer query parameter, falling back to def when it
// is absent. Values outside [lo, hi] are rejected, never clamped.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, checkRange(name, def, lo, hi)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidArgument("%s must be an integer, got %q", name, raw)
	}
	return v, checkRange(name, v, lo, hi)
}

func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
