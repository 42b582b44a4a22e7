package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"salla-analytics/internal/models"
)

// SQLite reads a warehouse file through database/sql and the modernc
// driver.
type SQLite struct {
	db      *sql.DB
	dsn     string
	timeout time.Duration
}

func OpenSQLite(ctx context.Context, cfg Config) (*SQLite, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite warehouse: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConnections))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classifySQLite(err, "", "ping warehouse")
	}
	return &SQLite{db: db, dsn: cfg.DSN, timeout: cfg.QueryTimeout}, nil
}

// DB exposes the handle to the loader and migrations.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Driver() string { return "sqlite" }

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classifySQLite(err, "", "ping warehouse")
	}
	return nil
}

func (s *SQLite) CheckSchema(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	for _, sc := range schemaChecks() {
		rows, err := s.db.QueryContext(ctx, sc.query)
		if err == nil {
			err = rows.Close()
		}
		if err != nil {
			return classifySQLite(err, sc.table, "check schema")
		}
	}
	return nil
}

func (s *SQLite) OrderItems(ctx context.Context) ([]models.OrderItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, seller_id, customer_id,
		       order_purchase_timestamp, quantity, total_item_price, total_shipping_price
		FROM fct_order_items
		ORDER BY order_purchase_timestamp, order_id, product_id`)
	if err != nil {
		return nil, classifySQLite(err, TableOrderItems, "query order items")
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			it models.OrderItem
			at string
		)
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.SellerID, &it.CustomerID,
			&at, &it.Quantity, &it.ItemPrice, &it.ShippingPrice); err != nil {
			return nil, classifySQLite(err, TableOrderItems, "scan order items")
		}
		if it.PurchasedAt, err = ParseTimestamp(at); err != nil {
			return nil, fmt.Errorf("order %s: %w", it.OrderID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite(err, TableOrderItems, "read order items")
	}
	return items, nil
}

func (s *SQLite) Products(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, COALESCE(product_category_name, '')
		FROM dim_products
		ORDER BY product_id`)
	if err != nil {
		return nil, classifySQLite(err, TableProducts, "query products")
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.Category); err != nil {
			return nil, classifySQLite(err, TableProducts, "scan products")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite(err, TableProducts, "read products")
	}
	return products, nil
}

func (s *SQLite) Customers(ctx context.Context) ([]models.CustomerVersion, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, customer_state, effective_from, effective_to
		FROM dim_customers
		ORDER BY customer_id, effective_from`)
	if err != nil {
		return nil, classifySQLite(err, TableCustomers, "query customers")
	}
	defer rows.Close()

	var versions []models.CustomerVersion
	for rows.Next() {
		var (
			v    models.CustomerVersion
			from string
			to   sql.NullString
		)
		if err := rows.Scan(&v.CustomerID, &v.State, &from, &to); err != nil {
			return nil, classifySQLite(err, TableCustomers, "scan customers")
		}
		if v.EffectiveFrom, err = ParseTimestamp(from); err != nil {
			return nil, fmt.Errorf("customer %s: %w", v.CustomerID, err)
		}
		var toPtr *string
		if to.Valid {
			toPtr = &to.String
		}
		if v.EffectiveTo, err = parseOptionalTimestamp(toPtr); err != nil {
			return nil, fmt.Errorf("customer %s: %w", v.CustomerID, err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite(err, TableCustomers, "read customers")
	}
	return versions, nil
}
