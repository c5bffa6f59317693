// Package sqlstore implements the repository interfaces on top of
// database/sql. It speaks two dialects:
//
//   - SQLite through modernc.org/sqlite (pure Go, no CGo), the default for
//     development and every unit test (":memory:").
//   - PostgreSQL through github.com/lib/pq for deployments.
//
// Queries are written once with "?" placeholders and rebound to "$N" for
// Postgres. Schema lives in embedded golang-migrate migrations, one
// directory per dialect.
//
// TRANSACTIONS:
// WithinTx stores the *sql.Tx in the context it hands to its callback. Every
// repository method picks its querier from the context, so service code
// composes several repository calls into one transaction without the
// repositories knowing about it.
//
// SQLite is opened with a single connection. A second statement issued on the
// pool while a transaction holds that connection would block forever, so code
// inside WithinTx must always pass the ctx it was given.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sakif/snippet-hub/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	dsn     string
}

// Open parses a database URL and opens a pool for it.
//
// Accepted forms:
//   - "sqlite://data/snippets.db", "sqlite:///abs/path.db", "sqlite://:memory:"
//   - a bare path such as "data/snippets.db" or ":memory:" (SQLite)
//   - "postgres://..." or "postgresql://..." (PostgreSQL)
//
// Open does not run migrations; call Migrate.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case SQLite:
		return openSQLite(ctx, dsn)
	default:
		return openPostgres(ctx, dsn)
	}
}

// ParseURL splits a DATABASE_URL into its dialect and the driver DSN.
func ParseURL(databaseURL string) (Dialect, string, error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return "", "", errors.New("sqlstore: empty database url")
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return Postgres, u, nil
	case strings.HasPrefix(u, "sqlite://"):
		path := strings.TrimPrefix(u, "sqlite://")
		if path == "" {
			return "", "", errors.New("sqlstore: sqlite url has no path")
		}
		return SQLite, path, nil
	case strings.Contains(u, "://"):
		return "", "", fmt.Errorf("sqlstore: unsupported database url scheme in %q", Redact(u))
	default:
		return SQLite, u, nil
	}
}

func openSQLite(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: creating data directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: SQLite serialises writers anyway, PRAGMAs are
	// per-connection, and ":memory:" databases are per-connection too.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	return &DB{conn: conn, dialect: SQLite, dsn: path}, nil
}

func openPostgres(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	return &DB{conn: conn, dialect: Postgres, dsn: dsn}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect reports which SQL dialect the store speaks.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Check pings the database and runs a trivial query through the same path
// every repository call takes.
func (db *DB) Check(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: ping: %w", db.dialect, err)
	}
	var one int
	if err := db.queryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("%s: SELECT 1: %w", db.dialect, err)
	}
	if one != 1 {
		return fmt.Errorf("%s: SELECT 1 returned %d", db.dialect, one)
	}
	return nil
}

// Redact masks the password of a database URL for logs and CLI output.
func Redact(databaseURL string) string {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return databaseURL
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return databaseURL
	}
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return databaseURL
	}
	return scheme + "://" + user + ":****@" + host
}

// =========================================================================
// QUERY PLUMBING
// =========================================================================

type txKey struct{}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.conn
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.q(ctx).ExecContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.q(ctx).QueryContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.q(ctx).QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

// WithinTx implements repository.Transactor.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: beginning transaction: %w", db.dialect, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: committing transaction: %w", db.dialect, err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// affected turns a zero RowsAffected into a NotFound error.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
