// Package migrations applies the embedded schema migrations of the profile
// database.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ferrycli/ferry/internal/log"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// Apply brings the profile schema up to date. It is safe to call on every
// startup, an up to date schema is a no-op.
func Apply(db *sql.DB, logger log.Logger) error {
	return run(db, logger, func(m *migrate.Migrate) error { return m.Up() })
}

// Revert tears the profile schema down completely.
func Revert(db *sql.DB, logger log.Logger) error {
	return run(db, logger, func(m *migrate.Migrate) error { return m.Down() })
}

func run(db *sql.DB, logger log.Logger, step func(*migrate.Migrate) error) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(schemaFS, "sql")
	if err != nil {
		return fmt.Errorf("could not read embedded migrations: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Errorf("could not close migration source: %s", err)
		}
	}()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	logger.Debugf("Profile schema up to date")
	return nil
}
