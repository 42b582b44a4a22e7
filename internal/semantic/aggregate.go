package semantic

import (
	"cmp"
	"slices"

	"salla-analytics/internal/models"
)

// TopProductsByRegion groups facts by (product, state at purchase time).
// Summing the rows of one product over every state gives the same totals as
// aggregating that product's joined facts directly.
func TopProductsByRegion(facts []models.OrderItem, customers []models.CustomerVersion) []models.ProductRegionSales {
	type key struct{ product, state string }
	type acc struct {
		key
		*totals
	}

	groups := newGrouped[key, acc]()
	for _, f := range JoinLocations(facts, customers) {
		k := key{f.ProductID, f.State}
		groups.at(k, func() *acc { return &acc{key: k, totals: newTotals()} }).add(f.OrderItem)
	}

	rows := make([]models.ProductRegionSales, 0, groups.len())
	groups.each(func(a *acc) {
		rows = append(rows, models.ProductRegionSales{
			ProductID:     a.product,
			CustomerState: a.state,
			TotalRevenue:  a.revenue,
			TotalQuantity: a.quantity,
			NumOrders:     len(a.orders),
		})
	})
	slices.SortStableFunc(rows, func(a, b models.ProductRegionSales) int {
		return cmp.Compare(b.TotalRevenue, a.TotalRevenue)
	})
	return rows
}

type categoryAcc struct {
	category string
	*totals
}

func groupByCategory(facts []models.OrderItem, products []models.Product) *grouped[string, categoryAcc] {
	categories := newCategoryIndex(products)
	groups := newGrouped[string, categoryAcc]()
	for _, f := range facts {
		category, ok := categories[f.ProductID]
		if !ok {
			continue
		}
		groups.at(category, func() *categoryAcc {
			return &categoryAcc{category: category, totals: newTotals()}
		}).add(f)
	}
	return groups
}

// PopularCategories ranks categories by revenue, then by order count, and
// keeps the first topN.
func PopularCategories(facts []models.OrderItem, products []models.Product, topN int) ([]models.CategorySales, error) {
	if err := ValidateTopN("topN", topN); err != nil {
		return nil, err
	}

	groups := groupByCategory(facts, products)
	rows := make([]models.CategorySales, 0, groups.len())
	groups.each(func(a *categoryAcc) {
		rows = append(rows, models.CategorySales{
			Category:          a.category,
			TotalRevenue:      a.revenue,
			TotalQuantity:     a.quantity,
			NumOrders:         len(a.orders),
			NumUniqueProducts: len(a.products),
		})
	})
	slices.SortStableFunc(rows, func(a, b models.CategorySales) int {
		if c := cmp.Compare(b.TotalRevenue, a.TotalRevenue); c != 0 {
			return c
		}
		return cmp.Compare(b.NumOrders, a.NumOrders)
	})
	if len(rows) > topN {
		rows = rows[:topN]
	}
	return rows, nil
}

// AvgSaleByCategory averages line revenue per category. This is a mean over
// line items, not over orders.
func AvgSaleByCategory(facts []models.OrderItem, products []models.Product) []models.CategoryAverage {
	groups := groupByCategory(facts, products)
	rows := make([]models.CategoryAverage, 0, groups.len())
	groups.each(func(a *categoryAcc) {
		rows = append(rows, models.CategoryAverage{
			Category:      a.category,
			AvgSale:       a.revenue / float64(a.lines),
			TotalRevenue:  a.revenue,
			TotalQuantity: a.quantity,
			NumOrders:     len(a.orders),
		})
	})
	slices.SortStableFunc(rows, func(a, b models.CategoryAverage) int {
		return cmp.Compare(b.AvgSale, a.AvgSale)
	})
	return rows
}

// TopCategoriesByLocation ranks categories inside each customer state using
// the state valid at purchase time and keeps ranks <= topN. Ties within a
// state resolve to the order in which the (state, category) pair first
// appears in facts.
func TopCategoriesByLocation(facts []models.OrderItem, products []models.Product, customers []models.CustomerVersion, topN int) ([]models.StateCategorySales, error) {
	if err := ValidateTopN("topN", topN); err != nil {
		return nil, err
	}

	type key struct{ state, category string }
	type acc struct {
		key
		*totals
	}

	categories := newCategoryIndex(products)
	groups := newGrouped[key, acc]()
	for _, f := range JoinLocations(facts, customers) {
		category, ok := categories[f.ProductID]
		if !ok {
			continue
		}
		k := key{f.State, category}
		groups.at(k, func() *acc { return &acc{key: k, totals: newTotals()} }).add(f.OrderItem)
	}

	rows := make([]models.StateCategorySales, 0, groups.len())
	groups.each(func(a *acc) {
		rows = append(rows, models.StateCategorySales{
			CustomerState: a.state,
			Category:      a.category,
			TotalRevenue:  a.revenue,
			TotalQuantity: a.quantity,
			NumOrders:     len(a.orders),
		})
	})

	ranked, err := RankWithin(rows, topN,
		func(r models.StateCategorySales) string { return r.CustomerState },
		func(r models.StateCategorySales) float64 { return r.TotalRevenue },
	)
	if err != nil {
		return nil, err
	}

	out := make([]models.StateCategorySales, len(ranked))
	for i, r := range ranked {
		out[i] = r.Row
		out[i].RankInState = r.Rank
	}
	return out, nil
}
