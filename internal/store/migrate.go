package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration for the store's driver
func (s *Store) Migrate(ctx context.Context, dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var (
		driver  database.Driver
		cleanup func() error
	)
	switch s.driver {
	case DriverSQLite:
		// Same handle: an in-memory database is private to its connection.
		// The migrate instance is not closed since that would close s.db.
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
		cleanup = src.Close
	default:
		// A dedicated handle, because the postgres driver pins a connection
		// until it is closed
		var db *sql.DB
		db, err = sql.Open(DriverPostgres, dsn)
		if err == nil {
			driver, err = postgres.WithInstance(db, &postgres.Config{})
			if err != nil {
				db.Close()
			}
		}
	}
	if err != nil {
		src.Close()
		return wrap("prepare migrations", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		src.Close()
		return wrap("prepare migrations", err)
	}
	if cleanup == nil {
		cleanup = func() error {
			srcErr, dbErr := m.Close()
			return errors.Join(srcErr, dbErr)
		}
	}
	defer cleanup()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return wrap("apply migrations", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return wrap("read migration version", err)
	}
	s.logger.Debug("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
