package state

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	archiveMigrationsPath = "migrations/archive"
	migrateDefaultTable   = "schema_migrations"

	// Keep in sync with SQL files under migrations/archive/.
	archiveVersionBaseSchema     = 1
	archiveVersionPacketCounters = 2
	archiveLatestVersion         = archiveVersionPacketCounters
)

//go:embed migrations/archive/*.sql
var migrationsFS embed.FS

// MigrateArchiveDB applies archive.db migrations.
func MigrateArchiveDB(db *sql.DB) error {
	return migrateSQLiteDB(db, archiveMigrationsPath, migrateDefaultTable)
}

func migrateSQLiteDB(db *sql.DB, fsPath, migrationsTable string) error {
	if db == nil {
		return fmt.Errorf("migrate %s: nil db", fsPath)
	}

	sourceDriver, err := iofs.New(migrationsFS, fsPath)
	if err != nil {
		return fmt.Errorf("migrate %s: init source: %w", fsPath, err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return fmt.Errorf("migrate %s: init db driver: %w", fsPath, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("migrate %s: init migrator: %w", fsPath, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: up: %w", fsPath, err)
	}
	return nil
}

func migrationVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(fmt.Sprintf("SELECT version FROM %s LIMIT 1", migrateDefaultTable)).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", migrateDefaultTable, err)
	}
	return version, nil
}
