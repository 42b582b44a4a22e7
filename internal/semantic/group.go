package semantic

import "salla-analytics/internal/models"

// grouped keeps accumulators in first-seen key order so results never
// depend on map iteration.
type grouped[K comparable, V any] struct {
	index map[K]int
	accs  []*V
}

func newGrouped[K comparable, V any]() *grouped[K, V] {
	return &grouped[K, V]{index: make(map[K]int)}
}

func (g *grouped[K, V]) at(k K, init func() *V) *V {
	if i, ok := g.index[k]; ok {
		return g.accs[i]
	}
	acc := init()
	g.index[k] = len(g.accs)
	g.accs = append(g.accs, acc)
	return acc
}

func (g *grouped[K, V]) each(fn func(*V)) {
	for _, acc := range g.accs {
		fn(acc)
	}
}

func (g *grouped[K, V]) len() int {
	return len(g.accs)
}

type set map[string]struct{}

func (s set) add(v string) {
	s[v] = struct{}{}
}

// totals accumulates the sums shared by most result tables.
type totals struct {
	revenue  float64
	quantity int64
	lines    int
	orders   set
	products set
}

func newTotals() *totals {
	return &totals{orders: make(set), products: make(set)}
}

func (t *totals) add(f models.OrderItem) {
	t.revenue += f.Revenue()
	t.quantity += f.Quantity
	t.lines++
	t.orders.add(f.OrderID)
	t.products.add(f.ProductID)
}

// categoryIndex maps product ids to categories. The first row wins when the
// dimension repeats a product id.
type categoryIndex map[string]string

func newCategoryIndex(products []models.Product) categoryIndex {
	idx := make(categoryIndex, len(products))
	for _, p := range products {
		if _, ok := idx[p.ProductID]; !ok {
			idx[p.ProductID] = p.Category
		}
	}
	return idx
}
