package warehouse

import (
	"context"
	"slices"

	"salla-analytics/internal/models"
)

// Memory serves a fixed snapshot. It backs tests and demo mode.
type Memory struct {
	items     []models.OrderItem
	products  []models.Product
	customers []models.CustomerVersion
}

func NewMemory(items []models.OrderItem, products []models.Product, customers []models.CustomerVersion) *Memory {
	return &Memory{
		items:     slices.Clone(items),
		products:  slices.Clone(products),
		customers: slices.Clone(customers),
	}
}

func (m *Memory) OrderItems(ctx context.Context) ([]models.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.items), nil
}

func (m *Memory) Products(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.products), nil
}

func (m *Memory) Customers(ctx context.Context) ([]models.CustomerVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.customers), nil
}

func (m *Memory) CheckSchema(context.Context) error { return nil }
func (m *Memory) Ping(context.Context) error        { return nil }
func (m *Memory) Driver() string                    { return "memory" }
func (m *Memory) Close() error                      { return nil }
