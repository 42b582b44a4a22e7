// Package warehouse reads the curated fact and dimension tables. Every
// source is read-only from the analytics path; only the loader writes.
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "salla-analytics/internal/errors"
	"salla-analytics/internal/models"
)

const (
	TableOrderItems = "fct_order_items"
	TableProducts   = "dim_products"
	TableCustomers  = "dim_customers"
)

// Source loads full table snapshots. Implementations must honour ctx
// cancellation and classify failures as SchemaMissing or Connectivity.
type Source interface {
	OrderItems(ctx context.Context) ([]models.OrderItem, error)
	Products(ctx context.Context) ([]models.Product, error)
	Customers(ctx context.Context) ([]models.CustomerVersion, error)
	CheckSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

type Config struct {
	DSN             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	QueryTimeout    time.Duration
}

// Open picks the backend from the DSN scheme: postgres:// and
// postgresql:// use pgx, sqlite:// and file: use modernc sqlite, and a bare
// path ending in .db is treated as a sqlite file.
func Open(ctx context.Context, cfg Config) (Source, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, cfg)
	case strings.HasPrefix(dsn, "sqlite://"):
		cfg.DSN = strings.TrimPrefix(dsn, "sqlite://")
		return OpenSQLite(ctx, cfg)
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return OpenSQLite(ctx, cfg)
	case dsn == "":
		return nil, apperrors.InvalidArgument("warehouse DSN is empty")
	default:
		return nil, apperrors.InvalidArgument("unsupported warehouse DSN %q", redact(dsn))
	}
}

// requiredColumns is the input contract of the analytics path.
var requiredColumns = map[string][]string{
	TableOrderItems: {
		"order_id", "product_id", "seller_id", "customer_id",
		"order_purchase_timestamp", "quantity", "total_item_price", "total_shipping_price",
	},
	TableProducts:  {"product_id", "product_category_name"},
	TableCustomers: {"customer_id", "customer_state", "effective_from", "effective_to"},
}

// schemaChecks returns one zero-row SELECT per required table, in a stable
// order. A missing table or column makes its query fail.
func schemaChecks() []schemaCheck {
	tables := []string{TableOrderItems, TableProducts, TableCustomers}
	out := make([]schemaCheck, 0, len(tables))
	for _, t := range tables {
		out = append(out, schemaCheck{
			table: t,
			query: fmt.Sprintf("SELECT %s FROM %s LIMIT 0", strings.Join(requiredColumns[t], ", "), t),
		})
	}
	return out
}

type schemaCheck struct {
	table string
	query string
}

func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
