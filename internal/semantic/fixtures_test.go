package semantic

import (
	"time"

	"salla-analytics/internal/models"
)

func ts(value string) time.Time {
	t, err := time.Parse(time.DateTime, value)
	if err != nil {
		t, err = time.Parse(time.DateOnly, value)
		if err != nil {
			panic(err)
		}
	}
	return t
}

func item(order, product, seller, customer, at string, qty int64, price, shipping float64) models.OrderItem {
	return models.OrderItem{
		OrderID:       order,
		ProductID:     product,
		SellerID:      seller,
		CustomerID:    customer,
		PurchasedAt:   ts(at),
		Quantity:      qty,
		ItemPrice:     price,
		ShippingPrice: shipping,
	}
}

func version(customer, state, from, to string) models.CustomerVersion {
	v := models.CustomerVersion{CustomerID: customer, State: state, EffectiveFrom: ts(from)}
	if to != "" {
		v.EffectiveTo = ts(to)
	}
	return v
}

// sampleWarehouse is a small snapshot with a customer who moves from RJ to SP
// on 2023-06-01.
func sampleWarehouse() ([]models.OrderItem, []models.Product, []models.CustomerVersion) {
	facts := []models.OrderItem{
		item("o1", "p1", "s1", "c1", "2023-01-10 10:00:00", 2, 100, 10),
		item("o1", "p2", "s1", "c1", "2023-01-10 10:00:00", 1, 50, 5),
		item("o2", "p1", "s2", "c2", "2023-01-20 12:00:00", 1, 100, 10),
		item("o3", "p3", "s2", "c1", "2023-03-15 09:30:00", 3, 30, 0),
		item("o4", "p1", "s1", "c1", "2023-07-01 08:00:00", 1, 100, 10),
		item("o5", "p2", "s3", "c3", "2023-02-05 18:45:00", 4, 20, 2),
		item("o6", "p3", "s3", "c2", "2023-04-02 14:00:00", 1, 30, 3),
		item("o7", "p4", "s1", "c4", "2023-04-20 11:00:00", 1, 500, 0),
	}
	products := []models.Product{
		{ProductID: "p1", Category: "electronics"},
		{ProductID: "p2", Category: "toys"},
		{ProductID: "p3", Category: "books"},
		{ProductID: "p4", Category: "furniture"},
	}
	customers := []models.CustomerVersion{
		version("c1", "SP", "2023-06-01", ""),
		version("c1", "RJ", "2023-01-01", "2023-06-01"),
		version("c2", "MG", "2022-01-01", ""),
		version("c3", "SP", "2022-06-01", ""),
		version("c4", "RJ", "2022-01-01", ""),
	}
	return facts, products, customers
}
