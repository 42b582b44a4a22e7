package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"salla-analytics/internal/errors"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/warehouse"
)

// Report is the number of rows written per table.
type Report map[string]int

// tableRows is one table's replacement payload in column order.
type tableRows struct {
	table   string
	columns []string
	rows    [][]any
}

// Replace swaps the contents of every present table inside one
// transaction, so readers see either the old snapshot or the new one.
func Replace(ctx context.Context, src warehouse.Source, ds *Dataset, logger *slog.Logger) (Report, error) {
	ctx, span := observability.StartSpan(ctx, "ingest.replace")
	defer span.End(ctx, logger)
	span.SetTag("driver", src.Driver())

	var (
		payload []tableRows
		err     error
	)
	switch s := src.(type) {
	case *warehouse.Postgres:
		payload = ds.payload(func(t time.Time) any { return t })
		err = replacePostgres(ctx, s, payload)
	case *warehouse.SQLite:
		payload = ds.payload(func(t time.Time) any { return t.UTC().Format(warehouse.TimestampLayout) })
		err = replaceSQLite(ctx, s, payload)
	default:
		err = errors.InvalidArgument("loading into a %s warehouse is not supported", src.Driver())
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	report := make(Report, len(payload))
	for _, p := range payload {
		report[p.table] = len(p.rows)
		logger.Info("table replaced", "table", p.table, "rows", len(p.rows))
	}
	return report, nil
}

// payload converts the present tables to rows. Timestamps go through ts
// so each backend gets its native representation. Open-ended validity is
// written as NULL.
func (ds *Dataset) payload(ts func(time.Time) any) []tableRows {
	var out []tableRows
	if ds.Present[warehouse.TableProducts] {
		rows := make([][]any, 0, len(ds.Products))
		for _, p := range ds.Products {
			rows = append(rows, []any{p.ProductID, p.Category})
		}
		out = append(out, tableRows{warehouse.TableProducts, productColumns, rows})
	}
	if ds.Present[warehouse.TableCustomers] {
		rows := make([][]any, 0, len(ds.Customers))
		for _, c := range ds.Customers {
			var to any
			if !c.EffectiveTo.IsZero() {
				to = ts(c.EffectiveTo)
			}
			rows = append(rows, []any{c.CustomerID, c.State, ts(c.EffectiveFrom), to})
		}
		out = append(out, tableRows{warehouse.TableCustomers, customerColumns, rows})
	}
	if ds.Present[warehouse.TableOrderItems] {
		rows := make([][]any, 0, len(ds.Items))
		for _, it := range ds.Items {
			rows = append(rows, []any{
				it.OrderID, it.ProductID, it.SellerID, it.CustomerID,
				ts(it.PurchasedAt), it.Quantity, it.ItemPrice, it.ShippingPrice,
			})
		}
		out = append(out, tableRows{warehouse.TableOrderItems, orderItemColumns, rows})
	}
	return out
}

func replacePostgres(ctx context.Context, p *warehouse.Postgres, payload []tableRows) error {
	tx, err := p.Pool().Begin(ctx)
	if err != nil {
		return errors.Connectivity(err, "failed to begin load transaction")
	}
	defer tx.Rollback(ctx)

	for _, t := range payload {
		if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{t.table}.Sanitize()); err != nil {
			return fmt.Errorf("clear %s: %w", t.table, err)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{t.table}, t.columns, pgx.CopyFromRows(t.rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", t.table, err)
		}
		if int(n) != len(t.rows) {
			return fmt.Errorf("copy into %s: wrote %d of %d rows", t.table, n, len(t.rows))
		}
	}
	return tx.Commit(ctx)
}

func replaceSQLite(ctx context.Context, s *warehouse.SQLite, payload []tableRows) error {
	tx, err := s.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Connectivity(err, "failed to begin load transaction")
	}
	defer tx.Rollback()

	for _, t := range payload {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.table); err != nil {
			return fmt.Errorf("clear %s: %w", t.table, err)
		}
		if err := insertRows(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, t tableRows) error {
	placeholders := slices.Repeat([]string{"?"}, len(t.columns))
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.table, strings.Join(t.columns, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", t.table, err)
	}
	defer stmt.Close()

	for i, row := range t.rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", t.table, i+1, err)
		}
	}
	return nil
}
