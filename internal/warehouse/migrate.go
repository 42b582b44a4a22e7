package warehouse

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"

	apperrors "salla-analytics/internal/errors"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded warehouse schema. It is idempotent: an
// up-to-date database is not an error. Only the loader calls it; the
// analytics path never changes the schema.
func Migrate(src Source, logger *slog.Logger) error {
	var (
		driver database.Driver
		dir    string
		name   string
		err    error
	)
	switch s := src.(type) {
	case *Postgres:
		dir, name = "migrations/postgres", "pgx5"
		driver, err = migratepgx.WithInstance(stdlib.OpenDBFromPool(s.pool), &migratepgx.Config{})
	case *SQLite:
		// The migration driver closes its handle, so it gets its own.
		db, openErr := sql.Open("sqlite", s.dsn)
		if openErr != nil {
			return fmt.Errorf("failed to open sqlite for migrations: %w", openErr)
		}
		dir, name = "migrations/sqlite", "sqlite"
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return apperrors.InvalidArgument("%s warehouse does not support migrations", src.Driver())
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("failed to close migration source", "error", srcErr)
		}
		if dbErr != nil {
			logger.Warn("failed to close migration database", "error", dbErr)
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to apply", "driver", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("applied migrations", "driver", name, "version", version)
	return nil
}
