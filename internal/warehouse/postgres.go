package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salla-analytics/internal/models"
)

// Postgres reads the warehouse through a pgx connection pool.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// OpenPostgres creates the pool and pings it once. Pool defaults follow the
// usual service settings when the config leaves them zero.
func OpenPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse warehouse URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, classifyPostgres(err, "", "create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyPostgres(err, "", "ping warehouse")
	}

	return &Postgres{pool: pool, timeout: cfg.QueryTimeout}, nil
}

// Pool exposes the underlying pool to the loader and migrations.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *Postgres) Driver() string { return "postgres" }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return classifyPostgres(err, "", "ping warehouse")
	}
	return nil
}

func (p *Postgres) CheckSchema(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	for _, sc := range schemaChecks() {
		rows, err := p.pool.Query(ctx, sc.query)
		if err == nil {
			rows.Close()
			err = rows.Err()
		}
		if err != nil {
			return classifyPostgres(err, sc.table, "check schema")
		}
	}
	return nil
}

const postgresOrderItemsQuery = `
	SELECT order_id::text, product_id::text, seller_id::text, customer_id::text,
	       order_purchase_timestamp::text, quantity::bigint,
	       total_item_price::float8, total_shipping_price::float8
	FROM fct_order_items
	ORDER BY order_purchase_timestamp, order_id, product_id`

func (p *Postgres) OrderItems(ctx context.Context) ([]models.OrderItem, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, postgresOrderItemsQuery)
	if err != nil {
		return nil, classifyPostgres(err, TableOrderItems, "query order items")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OrderItem, error) {
		var (
			it models.OrderItem
			at string
		)
		if err := row.Scan(&it.OrderID, &it.ProductID, &it.SellerID, &it.CustomerID,
			&at, &it.Quantity, &it.ItemPrice, &it.ShippingPrice); err != nil {
			return it, err
		}
		ts, err := ParseTimestamp(at)
		if err != nil {
			return it, fmt.Errorf("order %s: %w", it.OrderID, err)
		}
		it.PurchasedAt = ts
		return it, nil
	})
	if err != nil {
		return nil, classifyPostgres(err, TableOrderItems, "scan order items")
	}
	return items, nil
}

func (p *Postgres) Products(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		SELECT product_id::text, COALESCE(product_category_name, '')::text
		FROM dim_products
		ORDER BY product_id`)
	if err != nil {
		return nil, classifyPostgres(err, TableProducts, "query products")
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Product])
	if err != nil {
		return nil, classifyPostgres(err, TableProducts, "scan products")
	}
	return products, nil
}

func (p *Postgres) Customers(ctx context.Context) ([]models.CustomerVersion, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		SELECT customer_id::text, customer_state::text,
		       effective_from::text, effective_to::text
		FROM dim_customers
		ORDER BY customer_id, effective_from`)
	if err != nil {
		return nil, classifyPostgres(err, TableCustomers, "query customers")
	}
	versions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CustomerVersion, error) {
		var (
			v        models.CustomerVersion
			from     string
			to       *string
			parseErr error
		)
		if err := row.Scan(&v.CustomerID, &v.State, &from, &to); err != nil {
			return v, err
		}
		if v.EffectiveFrom, parseErr = ParseTimestamp(from); parseErr != nil {
			return v, fmt.Errorf("customer %s: %w", v.CustomerID, parseErr)
		}
		if v.EffectiveTo, parseErr = parseOptionalTimestamp(to); parseErr != nil {
			return v, fmt.Errorf("customer %s: %w", v.CustomerID, parseErr)
		}
		return v, nil
	})
	if err != nil {
		return nil, classifyPostgres(err, TableCustomers, "scan customers")
	}
	return versions, nil
}
