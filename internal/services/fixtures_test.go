package services

import (
	"context"
	"sync/atomic"
	"time"

	"salla-analytics/internal/models"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/warehouse"
)

func at(value string) time.Time {
	t, err := time.Parse(time.DateTime, value)
	if err != nil {
		panic(err)
	}
	return t
}

func line(order, product, seller, customer, when string, qty int64, price, shipping float64) models.OrderItem {
	return models.OrderItem{
		OrderID: order, ProductID: product, SellerID: seller, CustomerID: customer,
		PurchasedAt: at(when), Quantity: qty, ItemPrice: price, ShippingPrice: shipping,
	}
}

// newSampleSource mirrors a small curated snapshot: c1 moves from RJ to SP
// on 2023-06-01.
func newSampleSource() *warehouse.Memory {
	items := []models.OrderItem{
		line("o1", "p1", "s1", "c1", "2023-01-10 10:00:00", 2, 100, 10),
		line("o1", "p2", "s1", "c1", "2023-01-10 10:00:00", 1, 50, 5),
		line("o2", "p1", "s2", "c2", "2023-01-20 12:00:00", 1, 100, 10),
		line("o3", "p3", "s2", "c1", "2023-03-15 09:30:00", 3, 30, 0),
		line("o4", "p1", "s1", "c1", "2023-07-01 08:00:00", 1, 100, 10),
		line("o5", "p2", "s3", "c3", "2023-02-05 18:45:00", 4, 20, 2),
		line("o6", "p3", "s3", "c2", "2023-04-02 14:00:00", 1, 30, 3),
		line("o7", "p4", "s1", "c4", "2023-04-20 11:00:00", 1, 500, 0),
	}
	products := []models.Product{
		{ProductID: "p1", Category: "electronics"},
		{ProductID: "p2", Category: "toys"},
		{ProductID: "p3", Category: "books"},
		{ProductID: "p4", Category: "furniture"},
	}
	customers := []models.CustomerVersion{
		{CustomerID: "c1", State: "RJ", EffectiveFrom: at("2023-01-01 00:00:00"), EffectiveTo: at("2023-06-01 00:00:00")},
		{CustomerID: "c1", State: "SP", EffectiveFrom: at("2023-06-01 00:00:00")},
		{CustomerID: "c2", State: "MG", EffectiveFrom: at("2022-01-01 00:00:00")},
		{CustomerID: "c3", State: "SP", EffectiveFrom: at("2022-06-01 00:00:00")},
		{CustomerID: "c4", State: "RJ", EffectiveFrom: at("2022-01-01 00:00:00")},
	}
	return warehouse.NewMemory(items, products, customers)
}

// countingSource counts fact table reads and can be switched to fail.
type countingSource struct {
	*warehouse.Memory
	reads atomic.Int64
	err   atomic.Pointer[error]
}

func (c *countingSource) fail(err error) {
	c.err.Store(&err)
}

func (c *countingSource) OrderItems(ctx context.Context) ([]models.OrderItem, error) {
	c.reads.Add(1)
	if err := c.err.Load(); err != nil && *err != nil {
		return nil, *err
	}
	return c.Memory.OrderItems(ctx)
}

// gatedSource holds OrderItems until release is closed. It signals
// entered on every read and honours the ctx it is given.
type gatedSource struct {
	*warehouse.Memory
	entered chan struct{}
	release chan struct{}
	reads   atomic.Int64
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		Memory:  newSampleSource(),
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) OrderItems(ctx context.Context) ([]models.OrderItem, error) {
	g.reads.Add(1)
	g.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.release:
	}
	return g.Memory.OrderItems(ctx)
}

type fakeClock struct{ now atomic.Int64 }

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.now.Store(at("2024-01-01 00:00:00").UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func newTestAnalytics(opts ...Option) (*Analytics, *countingSource) {
	src := &countingSource{Memory: newSampleSource()}
	return NewAnalytics(src, observability.Discard(), opts...), src
}
