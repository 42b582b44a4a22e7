package semantic

import (
	"cmp"
	"slices"

	"salla-analytics/internal/errors"
	"salla-analytics/internal/models"
)

// CohortAnalysis assigns every customer to the month of their earliest
// purchase and aggregates their orders by cohort age, the whole number of
// calendar months between an order's month and the cohort month.
//
// Customer counts per cohort are not assumed to decay with age: a customer
// can skip months and return.
func CohortAnalysis(facts []models.OrderItem) []models.CohortCell {
	cohorts := make(map[string]Month)
	for _, f := range facts {
		m := MonthOf(f.PurchasedAt)
		if first, ok := cohorts[f.CustomerID]; !ok || m.Before(first) {
			cohorts[f.CustomerID] = m
		}
	}

	type key struct {
		cohort Month
		age    int
	}
	type acc struct {
		key
		customers set
		orders    set
		revenue   float64
	}

	cells := newGrouped[key, acc]()
	for _, f := range facts {
		cohort := cohorts[f.CustomerID]
		k := key{cohort: cohort, age: MonthOf(f.PurchasedAt).Since(cohort)}
		a := cells.at(k, func() *acc {
			return &acc{key: k, customers: make(set), orders: make(set)}
		})
		a.customers.add(f.CustomerID)
		a.orders.add(f.OrderID)
		a.revenue += f.Revenue()
	}

	rows := make([]models.CohortCell, 0, cells.len())
	cells.each(func(a *acc) {
		rows = append(rows, models.CohortCell{
			CohortMonth:           a.cohort.Label(),
			CohortAge:             a.age,
			NumCustomers:          len(a.customers),
			NumOrders:             len(a.orders),
			TotalRevenue:          a.revenue,
			AvgRevenuePerCustomer: a.revenue / float64(len(a.customers)),
		})
	})
	slices.SortFunc(rows, func(a, b models.CohortCell) int {
		if c := cmp.Compare(a.CohortMonth, b.CohortMonth); c != 0 {
			return c
		}
		return cmp.Compare(a.CohortAge, b.CohortAge)
	})
	return rows
}

// Retention returns 100 * customers at age / customers at age 0 for one
// cohort. It fails with UndefinedMetric when the cohort has no age-0 row or
// that row counts zero customers.
func Retention(cells []models.CohortCell, cohortMonth string, age int) (float64, error) {
	var base, at *models.CohortCell
	for i := range cells {
		c := &cells[i]
		if c.CohortMonth != cohortMonth {
			continue
		}
		switch c.CohortAge {
		case 0:
			base = c
		case age:
			at = c
		}
	}
	if base == nil || base.NumCustomers == 0 {
		return 0, errors.UndefinedMetric("cohort %s has no customers at age 0", cohortMonth)
	}
	if age == 0 {
		return 100, nil
	}
	if at == nil {
		return 0, nil
	}
	return 100 * float64(at.NumCustomers) / float64(base.NumCustomers), nil
}
