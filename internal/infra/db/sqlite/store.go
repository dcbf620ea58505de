// Package sqlite is the single-node entitlement store on the pure Go
// SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*Store)(nil)

// Store owns the database handle and hands out repositories bound to it.
type Store struct {
	db *sql.DB
}

// Open creates parent directories, applies pragmas and the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; transactions serialize on the single connection
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Users() repository.UserRepository { return &userRepo{db: s.db} }

func (s *Store) ActivationCodes() repository.ActivationCodeRepository {
	return &activationCodeRepo{db: s.db}
}

func (s *Store) Groups() repository.GroupRepository { return &groupRepo{db: s.db} }

// WithTx runs fn in one transaction. SQLite transactions are always
// serializable, so opts.Serializable needs nothing extra.
func (s *Store) WithTx(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getExecutor(db *sql.DB, tx repository.Tx) (executor, error) {
	switch v := tx.(type) {
	case *sql.Tx:
		return v, nil
	case *sql.DB:
		return v, nil
	case nil:
		if db != nil {
			return db, nil
		}
		return nil, domain.ErrInvalidArgument
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func execSQL(ctx context.Context, db *sql.DB, tx repository.Tx, q string, args ...any) (int64, error) {
	ex, err := getExecutor(db, tx)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func pickRow(ctx context.Context, db *sql.DB, tx repository.Tx, q string, args ...any) (*sql.Row, error) {
	ex, err := getExecutor(db, tx)
	if err != nil {
		return nil, err
	}
	return ex.QueryRowContext(ctx, q, args...), nil
}

func queryRows(ctx context.Context, db *sql.DB, tx repository.Tx, q string, args ...any) (*sql.Rows, error) {
	ex, err := getExecutor(db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func scanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
