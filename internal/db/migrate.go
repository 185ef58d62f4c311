package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateURL rewrites a libpq-style URL to the scheme the pgx/v5 migrate driver registers.
func migrateURL(dbURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return m, nil
}

func closeMigrator(m *migrate.Migrate, log *slog.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		log.Warn("migrator close failed", "source_err", srcErr, "db_err", dbErr)
	}
}

// MigrateUp applies every pending migration. No pending migrations is not an error.
func MigrateUp(dbURL string, log *slog.Logger) error {
	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("migrations up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, _, _ := m.Version()
	log.Info("migrations applied", "version", version)

	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(dbURL string, steps int, log *slog.Logger) error {
	if steps <= 0 {
		steps = 1
	}

	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	err = m.Steps(-steps)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}

	log.Info("migrations rolled back", "steps", steps)
	return nil
}

// MigrationVersion reports the current schema version and whether it is dirty.
func MigrationVersion(dbURL string, log *slog.Logger) (uint, bool, error) {
	m, err := newMigrator(dbURL)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrator(m, log)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}
