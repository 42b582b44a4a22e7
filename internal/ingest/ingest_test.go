package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salla-analytics/internal/errors"
	"salla-analytics/internal/models"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/semantic"
	"salla-analytics/internal/warehouse"
)

const (
	orderItemsCSV = `order_id,product_id,seller_id,customer_id,order_purchase_timestamp,quantity,total_item_price,total_shipping_price
o1,p1,s1,c1,2023-01-10 10:00:00,2,100,10
o2,p1,s2,c2,2023-01-20 12:00:00,1,100,10
o3,p2,s1,c1,2023-07-01 08:00:00,1,50,5
`
	productsCSV = `product_id,product_category_name
p1,electronics
p2,
`
	customersCSV = `customer_id,customer_state,effective_from,effective_to
c1,RJ,2023-01-01 00:00:00,2023-06-01 00:00:00
c1,SP,2023-06-01 00:00:00,
c2,MG,2022-01-01 00:00:00,
`
)

func writeExports(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func allExports() map[string]string {
	return map[string]string{
		"order_items.csv": orderItemsCSV,
		"products.csv":    productsCSV,
		"customers.csv":   customersCSV,
	}
}

func newSQLite(t *testing.T) *warehouse.SQLite {
	t.Helper()
	src, err := warehouse.Open(context.Background(), warehouse.Config{
		DSN:          filepath.Join(t.TempDir(), "warehouse.db"),
		QueryTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	require.NoError(t, warehouse.Migrate(src, observability.Discard()))
	return src.(*warehouse.SQLite)
}

func TestReadDir(t *testing.T) {
	ds, err := ReadDir(context.Background(), writeExports(t, allExports()), observability.Discard())
	require.NoError(t, err)

	assert.Len(t, ds.Items, 3)
	assert.Len(t, ds.Products, 2)
	assert.Len(t, ds.Customers, 3)
	assert.Equal(t, map[string]bool{
		warehouse.TableOrderItems: true,
		warehouse.TableProducts:   true,
		warehouse.TableCustomers:  true,
	}, ds.Present)
}

func TestReadDir_SkipsMissingFile(t *testing.T) {
	files := allExports()
	delete(files, "customers.csv")

	ds, err := ReadDir(context.Background(), writeExports(t, files), observability.Discard())
	require.NoError(t, err)
	assert.False(t, ds.Present[warehouse.TableCustomers])
	assert.Empty(t, ds.Customers)
	assert.Len(t, ds.Items, 3)
}

func TestReadDir_BadFileFails(t *testing.T) {
	files := allExports()
	files["products.csv"] = "product_id\np1\n"

	_, err := ReadDir(context.Background(), writeExports(t, files), observability.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products.csv: missing columns: product_category_name")
}

func TestReadDir_CompletesLinesFromOrders(t *testing.T) {
	files := allExports()
	files["order_items.csv"] = "order_id,product_id,seller_id,quantity,total_item_price,total_shipping_price\n" +
		"o1,p1,s1,2,100,10\n" +
		"o1,p2,s1,1,50,5\n" +
		"o2,p1,s2,1,100,10\n"
	files[OrdersFile] = "order_id,customer_id,order_status,order_purchase_timestamp\n" +
		"o1,c1,delivered,2023-01-10 10:00:00\n" +
		"o2,c2,delivered,2023-01-20 12:00:00\n"

	ds, err := ReadDir(context.Background(), writeExports(t, files), observability.Discard())
	require.NoError(t, err)

	require.Len(t, ds.Items, 3)
	assert.Equal(t, "c1", ds.Items[1].CustomerID)
	assert.Equal(t, time.Date(2023, 1, 10, 10, 0, 0, 0, time.UTC), ds.Items[1].PurchasedAt)
	assert.Equal(t, "c2", ds.Items[2].CustomerID)
	assert.False(t, ds.Present["orders"], "orders.csv is not a warehouse table")
}

func TestReadDir_OrderLineWithoutOrderFails(t *testing.T) {
	files := allExports()
	files["order_items.csv"] = "order_id,product_id,seller_id,quantity,total_item_price,total_shipping_price\n" +
		"o9,p1,s1,1,10,1\n"
	files[OrdersFile] = "order_id,customer_id,order_purchase_timestamp\no1,c1,2023-01-10\n"

	_, err := ReadDir(context.Background(), writeExports(t, files), observability.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order o9 is not in orders.csv")
}

func TestReplace_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)

	ds, err := ReadDir(ctx, writeExports(t, allExports()), observability.Discard())
	require.NoError(t, err)

	report, err := Replace(ctx, db, ds, observability.Discard())
	require.NoError(t, err)
	assert.Equal(t, Report{
		warehouse.TableOrderItems: 3,
		warehouse.TableProducts:   2,
		warehouse.TableCustomers:  3,
	}, report)

	require.NoError(t, db.CheckSchema(ctx))
	items, err := db.OrderItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	customers, err := db.Customers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 3)

	products, err := db.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Product{
		{ProductID: "p1", Category: "electronics"},
		{ProductID: "p2", Category: ""},
	}, products)

	// A second load replaces rather than appends.
	_, err = Replace(ctx, db, ds, observability.Discard())
	require.NoError(t, err)
	items, err = db.OrderItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestReplace_LeavesSkippedTablesAlone(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)

	full, err := ReadDir(ctx, writeExports(t, allExports()), observability.Discard())
	require.NoError(t, err)
	_, err = Replace(ctx, db, full, observability.Discard())
	require.NoError(t, err)

	partial, err := ReadDir(ctx, writeExports(t, map[string]string{
		"order_items.csv": "order_id,product_id,seller_id,customer_id,order_purchase_timestamp,quantity,total_item_price,total_shipping_price\n" +
			"o9,p1,s1,c2,2023-03-01,1,10,1\n",
	}), observability.Discard())
	require.NoError(t, err)

	report, err := Replace(ctx, db, partial, observability.Discard())
	require.NoError(t, err)
	assert.Equal(t, Report{warehouse.TableOrderItems: 1}, report)

	items, err := db.OrderItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "o9", items[0].OrderID)

	customers, err := db.Customers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 3)
}

func TestReplace_SQLiteKeepsFractionalSeconds(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)

	ds, err := ReadDir(ctx, writeExports(t, map[string]string{
		"order_items.csv": "order_id,product_id,seller_id,customer_id,order_purchase_timestamp,quantity,total_item_price,total_shipping_price\n" +
			"o1,p1,s1,c1,2023-06-01 00:00:00.200,1,10,0\n",
		"customers.csv": "customer_id,customer_state,effective_from,effective_to\n" +
			"c1,RJ,2023-01-01 00:00:00,2023-06-01 00:00:00.500\n" +
			"c1,SP,2023-06-01 00:00:00.500,\n",
	}), observability.Discard())
	require.NoError(t, err)
	_, err = Replace(ctx, db, ds, observability.Discard())
	require.NoError(t, err)

	items, err := db.OrderItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 200_000_000, time.UTC), items[0].PurchasedAt)

	customers, err := db.Customers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 500_000_000, time.UTC), customers[0].EffectiveTo)

	located := semantic.JoinLocations(items, customers)
	require.Len(t, located, 1)
	assert.Equal(t, "RJ", located[0].State)
}

func TestReplace_UnsupportedSource(t *testing.T) {
	_, err := Replace(context.Background(), warehouse.NewMemory(nil, nil, nil), &Dataset{}, observability.Discard())
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
}
