// Command loader applies the warehouse schema and replaces the curated
// tables with the CSV exports found in a directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"salla-analytics/internal/config"
	"salla-analytics/internal/ingest"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/warehouse"
)

func run(ctx context.Context, cfg *config.Config, dir string, logger *slog.Logger) (ingest.Report, error) {
	src, err := warehouse.Open(ctx, warehouse.Config{
		DSN:             cfg.Warehouse.DSN,
		MaxConnections:  cfg.Warehouse.MaxConnections,
		MaxConnLifetime: cfg.Warehouse.MaxConnLifetime,
		MaxConnIdleTime: cfg.Warehouse.MaxConnIdleTime,
		QueryTimeout:    cfg.Warehouse.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := warehouse.Migrate(src, logger); err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := ingest.ReadDir(ctx, dir, logger)
	if err != nil {
		return nil, fmt.Errorf("read exports: %w", err)
	}
	logger.Info("exports parsed",
		"dir", dir,
		"order_items", len(ds.Items),
		"products", len(ds.Products),
		"customers", len(ds.Customers),
		"duration", time.Since(start),
	)

	return ingest.Replace(ctx, src, ds, logger)
}

func main() {
	dir := flag.String("dir", "data/curated", "directory holding order_items.csv, products.csv, customers.csv and optionally orders.csv")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, cfg, *dir, logger)
	if err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}

	tables := make([]string, 0, len(report))
	for table := range report {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		fmt.Printf("%-16s %d rows\n", table, report[table])
	}
}
