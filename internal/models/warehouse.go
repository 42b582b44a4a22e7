package models

import "time"

// OrderItem is one sold line item from fct_order_items.
type OrderItem struct {
	OrderID       string
	ProductID     string
	SellerID      string
	CustomerID    string
	PurchasedAt   time.Time
	Quantity      int64
	ItemPrice     float64
	ShippingPrice float64
}

// Revenue is the only monetary measure used by the analytics.
func (o OrderItem) Revenue() float64 {
	return o.ItemPrice + o.ShippingPrice
}

// Product is a row of dim_products.
type Product struct {
	ProductID string
	Category  string
}

// CustomerVersion is one validity interval of dim_customers.
// A zero EffectiveTo means the version is still current.
type CustomerVersion struct {
	CustomerID    string
	State         string
	EffectiveFrom time.Time
	EffectiveTo   time.Time
}

// Contains reports whether t falls inside [EffectiveFrom, EffectiveTo).
func (c CustomerVersion) Contains(t time.Time) bool {
	if t.Before(c.EffectiveFrom) {
		return false
	}
	return c.EffectiveTo.IsZero() || t.Before(c.EffectiveTo)
}
