// Package ingest loads CSV exports into the warehouse tables.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"salla-analytics/internal/models"
	"salla-analytics/internal/warehouse"
)

// Files maps each warehouse table to the export it is loaded from.
var Files = map[string]string{
	warehouse.TableOrderItems: "order_items.csv",
	warehouse.TableProducts:   "products.csv",
	warehouse.TableCustomers:  "customers.csv",
}

// OrdersFile is the optional order header export. When present, order
// lines may omit customer_id and order_purchase_timestamp and take them
// from their order.
const OrdersFile = "orders.csv"

// Dataset holds the parsed exports. A table whose file was absent is not
// listed in Present and is left untouched by Replace.
type Dataset struct {
	Items     []models.OrderItem
	Products  []models.Product
	Customers []models.CustomerVersion
	Present   map[string]bool
}

func readFile[T any](ctx context.Context, path string, required []string, parse func(record) (T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]T, 0)
	_, err = readRows(f, required, func(r record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := parse(r)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// ReadDir parses the exports in dir concurrently. A missing table export
// is logged and skipped; any other failure aborts the whole read.
func ReadDir(ctx context.Context, dir string, logger *slog.Logger) (*Dataset, error) {
	ds := &Dataset{Present: make(map[string]bool, len(Files))}
	found := make(map[string]bool, len(Files))
	for table, name := range Files {
		path := filepath.Join(dir, name)
		ok, err := exists(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warn("export not found, skipping table", "file", path, "table", table)
			continue
		}
		found[table] = true
	}

	ordersPath := filepath.Join(dir, OrdersFile)
	withOrders, err := exists(ordersPath)
	if err != nil {
		return nil, err
	}
	if withOrders && !found[warehouse.TableOrderItems] {
		logger.Warn("orders export has no order lines to complete, ignoring", "file", ordersPath)
		withOrders = false
	}

	var orders []order
	g, ctx := errgroup.WithContext(ctx)
	if withOrders {
		g.Go(func() (err error) {
			orders, err = readFile(ctx, ordersPath, orderColumns, parseOrder)
			return err
		})
	}
	if found[warehouse.TableOrderItems] {
		columns, parse := orderItemColumns, parseOrderItem
		if withOrders {
			columns, parse = orderLineColumns, parseOrderLine
		}
		g.Go(func() (err error) {
			ds.Items, err = readFile(ctx, filepath.Join(dir, Files[warehouse.TableOrderItems]), columns, parse)
			return err
		})
	}
	if found[warehouse.TableProducts] {
		g.Go(func() (err error) {
			ds.Products, err = readFile(ctx, filepath.Join(dir, Files[warehouse.TableProducts]), productColumns, parseProduct)
			return err
		})
	}
	if found[warehouse.TableCustomers] {
		g.Go(func() (err error) {
			ds.Customers, err = readFile(ctx, filepath.Join(dir, Files[warehouse.TableCustomers]), customerColumns, parseCustomer)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if withOrders {
		if err := joinOrders(ds.Items, orders); err != nil {
			return nil, err
		}
		logger.Info("order lines completed from orders export", "orders", len(orders), "lines", len(ds.Items))
	}

	for table := range found {
		ds.Present[table] = true
	}
	return ds, nil
}

// joinOrders fills the customer and purchase time of each line from its
// order. Values already on the line win; the first row of a repeated
// order id wins.
func joinOrders(items []models.OrderItem, orders []order) error {
	byID := make(map[string]order, len(orders))
	for _, o := range orders {
		if _, ok := byID[o.id]; !ok {
			byID[o.id] = o
		}
	}
	for i := range items {
		it := &items[i]
		if it.CustomerID != "" && !it.PurchasedAt.IsZero() {
			continue
		}
		o, ok := byID[it.OrderID]
		if !ok {
			return fmt.Errorf("%s: order %s is not in %s", Files[warehouse.TableOrderItems], it.OrderID, OrdersFile)
		}
		if it.CustomerID == "" {
			it.CustomerID = o.customerID
		}
		if it.PurchasedAt.IsZero() {
			it.PurchasedAt = o.purchasedAt
		}
	}
	return nil
}
