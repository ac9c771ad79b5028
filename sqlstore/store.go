// Package sqlstore provides a persistence.DocumentStore backed by a SQL
// database. SQLite (github.com/mattn/go-sqlite3) and PostgreSQL
// (github.com/lib/pq) are supported; the tables are created by embedded
// migrations when a store is opened.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/persistence"
	"github.com/asaidimu/go-daybed/utils"
)

// dbRunner abstracts the methods shared by *sql.DB and *sql.Tx, so the same
// statement helpers serve plain and transactional reads and writes.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	selectDefinition = `SELECT definition FROM definitions WHERE model = ?`

	upsertDefinition = `INSERT INTO definitions (model, definition, hash, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (model) DO UPDATE SET definition = excluded.definition, hash = excluded.hash, updated_at = excluded.updated_at`

	selectToken = `SELECT token FROM tokens WHERE model = ?`

	insertToken = `INSERT INTO tokens (model, token, created_at) VALUES (?, ?, ?) ON CONFLICT (model) DO NOTHING`

	insertRecord = `INSERT INTO records (id, model, data, created_at) VALUES (?, ?, ?, ?)`

	selectRecords = `SELECT data FROM records WHERE model = ? ORDER BY seq`
)

// Store is a SQL backed DocumentStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// Ensure Store implements the persistence.DocumentStore interface.
var _ persistence.DocumentStore = (*Store)(nil)

// Open connects to the database described by dsn, applies the SQLite pragmas
// when relevant and runs the migrations. The returned store owns the pool.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLite has a single writer; one connection also keeps :memory:
		// databases alive and shared.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		for _, pragma := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
			}
		}
	}

	if err := Migrate(db, dialect, dsn, logger); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, dialect, logger), nil
}

// New wraps an already migrated database handle.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, logger: logger}
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) exec(ctx context.Context, r dbRunner, query string, args ...any) (sql.Result, error) {
	query = s.dialect.rebind(query)
	s.logger.Debug("Executing SQL", zap.String("sql", query), zap.Any("params", args))
	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to execute statement", zap.Error(err), zap.String("sql", query))
	}
	return result, err
}

func (s *Store) queryRow(ctx context.Context, r dbRunner, query string, args ...any) *sql.Row {
	query = s.dialect.rebind(query)
	s.logger.Debug("Executing SQL query", zap.String("sql", query), zap.Any("params", args))
	return r.QueryRowContext(ctx, query, args...)
}

// scanString reads a single text column, mapping a missing row to ErrNotFound.
func (s *Store) scanString(ctx context.Context, r dbRunner, query string, args ...any) (string, error) {
	var value string
	err := s.queryRow(ctx, r, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", persistence.ErrNotFound
	}
	return value, err
}

func (s *Store) GetDefinition(ctx context.Context, model string) (json.RawMessage, error) {
	definition, err := s.scanString(ctx, s.db, selectDefinition, model)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read definition of %s: %w", model, err)
	}
	return json.RawMessage(definition), nil
}

func (s *Store) PutDefinition(ctx context.Context, model string, definition json.RawMessage) error {
	return s.writeDefinition(ctx, s.db, model, definition)
}

func (s *Store) writeDefinition(ctx context.Context, r dbRunner, model string, definition json.RawMessage) error {
	_, err := s.exec(ctx, r, upsertDefinition, model, string(definition), utils.ContentHash(definition), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write definition of %s: %w", model, err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, model string) (string, error) {
	token, err := s.scanString(ctx, s.db, selectToken, model)
	if errors.Is(err, persistence.ErrNotFound) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token of %s: %w", model, err)
	}
	return token, nil
}

// ClaimModel inserts the token with a conditional insert; only the
// transaction whose insert took effect writes the definition.
func (s *Store) ClaimModel(ctx context.Context, model, token string, definition json.RawMessage) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.logger.Debug("Transaction initiated", zap.String("model", model))
	defer func() { _ = tx.Rollback() }()

	result, err := s.exec(ctx, tx, insertToken, model, token, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to claim %s: %w", model, err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to claim %s: %w", model, err)
	}

	persisted := token
	if inserted == 0 {
		persisted, err = s.scanString(ctx, tx, selectToken, model)
		if err != nil {
			return "", fmt.Errorf("failed to read token of %s: %w", model, err)
		}
	} else if err := s.writeDefinition(ctx, tx, model, definition); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit claim of %s: %w", model, err)
	}
	return persisted, nil
}

func (s *Store) InsertRecord(ctx context.Context, model string, data json.RawMessage) (string, error) {
	id := uuid.New().String()
	if _, err := s.exec(ctx, s.db, insertRecord, id, model, string(data), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert record into %s: %w", model, err)
	}
	return id, nil
}

func (s *Store) ListRecords(ctx context.Context, model string) ([]json.RawMessage, error) {
	query := s.dialect.rebind(selectRecords)
	s.logger.Debug("Executing SQL query", zap.String("sql", query), zap.String("model", model))

	rows, err := s.db.QueryContext(ctx, query, model)
	if err != nil {
		s.logger.Error("Failed to execute query", zap.Error(err), zap.String("sql", query))
		return nil, fmt.Errorf("failed to list records of %s: %w", model, err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
