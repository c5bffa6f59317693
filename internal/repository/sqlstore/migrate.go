package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version recorded by golang-migrate.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Applied is false when no migration has ever run.
	Applied bool
}

// Migrate applies every pending up migration.
func (db *DB) Migrate() error {
	return db.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("%s: applying migrations: %w", db.dialect, err)
		}
		return nil
	})
}

// Reset drops every table by running all down migrations, then migrates
// back up. All data is lost.
func (db *DB) Reset() error {
	return db.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("%s: reverting migrations: %w", db.dialect, err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("%s: applying migrations: %w", db.dialect, err)
		}
		return nil
	})
}

// MigrationStatus reports the current schema version.
func (db *DB) MigrationStatus() (MigrationStatus, error) {
	var st MigrationStatus
	err := db.withMigrator(func(m *migrate.Migrate) error {
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: reading migration version: %w", db.dialect, err)
		}
		st = MigrationStatus{Version: v, Dirty: dirty, Applied: true}
		return nil
	})
	return st, err
}

// withMigrator builds a migrate instance for the store's dialect.
//
// The migrate database drivers close the *sql.DB they were given when the
// migrator is closed. Postgres therefore gets its own short-lived pool. The
// SQLite migrator shares the store's single connection (":memory:" databases
// exist only on that connection) and is simply dropped instead of closed.
func (db *DB) withMigrator(fn func(m *migrate.Migrate) error) error {
	sub, err := fs.Sub(migrationsFS, "migrations/"+string(db.dialect))
	if err != nil {
		return fmt.Errorf("%s: locating migrations: %w", db.dialect, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("%s: creating migration source: %w", db.dialect, err)
	}

	switch db.dialect {
	case SQLite:
		driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("sqlite: creating migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
		if err != nil {
			return fmt.Errorf("sqlite: creating migrator: %w", err)
		}
		return fn(m)

	default:
		sqlDB, err := sql.Open("postgres", db.dsn)
		if err != nil {
			return fmt.Errorf("postgres: opening migration connection: %w", err)
		}
		driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
		if err != nil {
			sqlDB.Close()
			return fmt.Errorf("postgres: creating migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
		if err != nil {
			sqlDB.Close()
			return fmt.Errorf("postgres: creating migrator: %w", err)
		}
		defer m.Close()
		return fn(m)
	}
}
