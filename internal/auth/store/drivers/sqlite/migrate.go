package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations applies any pending database migrations to the Store's
// database from the files embedded in the binary. The first migration also
// seeds the USER and ADMIN roles.
func (s *Store) ApplyMigrations() error {
	m, err := s.newMigrator()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the currently applied migration version.
func (s *Store) SchemaVersion() (uint, bool, error) {
	m, err := s.newMigrator()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrator wires the sqlite database driver to the embedded source. The
// returned instance is not closed: closing it would close the shared *sql.DB.
func (s *Store) newMigrator() (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}
