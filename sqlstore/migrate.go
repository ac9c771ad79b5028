package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// migrationsTable keeps migrate's bookkeeping apart from the document tables.
const migrationsTable = "daybed_schema_migrations"

func migrationSource(dialect Dialect) (fs.FS, error) {
	sub, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to get embedded migrations: %w", err)
	}
	return sub, nil
}

// Migrate applies every pending migration for dialect.
//
// SQLite migrations run on db itself, which matters for in-memory databases
// that only exist on their single connection. PostgreSQL migrations open a
// separate connection from dsn, which must be a postgres:// URL.
func Migrate(db *sql.DB, dialect Dialect, dsn string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	source, err := migrationSource(dialect)
	if err != nil {
		return err
	}
	d, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	var m *migrate.Migrate
	switch dialect {
	case DialectSQLite:
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: migrationsTable})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
		// Closing m would close db, which the store still owns.
		m, err = migrate.NewWithInstance("iofs", d, "sqlite3", driver)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	case DialectPostgres:
		m, err = migrate.NewWithSourceInstance("iofs", d, withMigrationsTable(dsn))
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
		defer func() { _, _ = m.Close() }()
	default:
		return fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("Database schema is up to date", zap.String("dialect", string(dialect)))
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Database migrated", zap.String("dialect", string(dialect)), zap.Uint("version", version))
	return nil
}

func withMigrationsTable(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&x-migrations-table=" + migrationsTable
	}
	return dsn + "?x-migrations-table=" + migrationsTable
}
