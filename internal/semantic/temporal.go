package semantic

import (
	"slices"
	"time"

	"salla-analytics/internal/models"
)

// locationIndex resolves a customer's state at a point in time. Versions are
// kept sorted by EffectiveFrom per customer so each lookup is a binary search
// followed by an interval containment check.
type locationIndex map[string][]models.CustomerVersion

func newLocationIndex(versions []models.CustomerVersion) locationIndex {
	idx := make(locationIndex)
	for _, v := range versions {
		idx[v.CustomerID] = append(idx[v.CustomerID], v)
	}
	for id := range idx {
		slices.SortStableFunc(idx[id], func(a, b models.CustomerVersion) int {
			return a.EffectiveFrom.Compare(b.EffectiveFrom)
		})
	}
	return idx
}

// stateAt returns the state valid for customerID at t, i.e. the version with
// effective_from <= t < effective_to. It reports false when no version
// covers t, which drops the fact as an inner join would.
func (idx locationIndex) stateAt(customerID string, t time.Time) (string, bool) {
	versions := idx[customerID]
	if len(versions) == 0 {
		return "", false
	}
	// First version starting after t; the candidate is the one before it.
	i, _ := slices.BinarySearchFunc(versions, t, func(v models.CustomerVersion, t time.Time) int {
		if v.EffectiveFrom.After(t) {
			return 1
		}
		return -1
	})
	if i == 0 {
		return "", false
	}
	v := versions[i-1]
	if !v.Contains(t) {
		return "", false
	}
	return v.State, true
}

// LocatedItem is a fact resolved against the customer dimension.
type LocatedItem struct {
	models.OrderItem
	State string
}

// JoinLocations performs the point-in-time join between facts and customer
// versions, preserving fact order. Facts with no valid version are dropped.
func JoinLocations(facts []models.OrderItem, customers []models.CustomerVersion) []LocatedItem {
	idx := newLocationIndex(customers)
	out := make([]LocatedItem, 0, len(facts))
	for _, f := range facts {
		state, ok := idx.stateAt(f.CustomerID, f.PurchasedAt)
		if !ok {
			continue
		}
		out = append(out, LocatedItem{OrderItem: f, State: state})
	}
	return out
}
