package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/envelope/internal/config"
)

var migrationSets = map[string]string{
	config.KeystoreDriverPostgres: "postgresql",
	config.KeystoreDriverMySQL:    "mysql",
}

// RunMigrations brings the data_keys table of a database key store up to the
// latest schema found under dir. An up-to-date schema is not an error. The
// file key store has no schema and is rejected.
func RunMigrations(logger *slog.Logger, driver, connectionString, dir string) error {
	if driver == config.KeystoreDriverFile {
		return fmt.Errorf("key store driver %q does not use migrations", driver)
	}
	set, ok := migrationSets[driver]
	if !ok {
		return fmt.Errorf("unsupported key store driver %q for migrations", driver)
	}

	path := filepath.Join(dir, set)
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations for %s not found in %s", driver, path)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(path), connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	from := schemaVersion(m)
	logger.Info("running key store migrations",
		slog.String("driver", driver),
		slog.String("path", path),
		slog.Any("from_version", from),
	)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("key store schema is up to date", slog.Any("version", schemaVersion(m)))
	return nil
}

// schemaVersion reports the applied migration, or nil before the first one.
func schemaVersion(m *migrate.Migrate) any {
	version, dirty, err := m.Version()
	if err != nil {
		return nil
	}
	if dirty {
		return fmt.Sprintf("%d (dirty)", version)
	}
	return version
}
