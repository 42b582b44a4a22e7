package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "salla-analytics/internal/errors"
)

// PostgreSQL SQLSTATE codes that mean the input contract is not met.
const (
	sqlStateUndefinedTable  = "42P01"
	sqlStateUndefinedColumn = "42703"
)

func classifyPostgres(err error, table, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUndefinedTable, sqlStateUndefinedColumn:
			return apperrors.SchemaMissing(err, schemaMessage(table))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) ||
		pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Connectivity(err, "warehouse is unreachable")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func classifySQLite(err error, table, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"):
		return apperrors.SchemaMissing(err, schemaMessage(table))
	case strings.Contains(msg, "unable to open database"), strings.Contains(msg, "database is locked"),
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.Connectivity(err, "warehouse is unreachable")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func schemaMessage(table string) string {
	if table == "" {
		return "required warehouse schema is missing"
	}
	return fmt.Sprintf("warehouse table %s is missing or lacks required columns", table)
}
