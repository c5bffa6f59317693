package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/snippet-hub/internal/repository"
)

// Dialect names the SQL flavour behind a DB. Its string form prefixes error
// messages ("sqlite: ...", "postgres: ...").
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) String() string { return string(d) }

// Rebind rewrites "?" placeholders as "$1", "$2", ... for Postgres. Question
// marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// shareLock is the row-lock clause appended to a single-row SELECT.
func (d Dialect) shareLock() string {
	if d == Postgres {
		return " FOR SHARE"
	}
	return ""
}

// isForeignKeyViolation recognises writes that reference a missing row.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return true
		}
		return strings.Contains(liteErr.Error(), "FOREIGN KEY constraint failed")
	}
	return false
}

// isUniqueViolation recognises unique and primary key violations from both
// drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		// Extended result codes are not guaranteed on every build.
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// wrapWrite prefixes err with the dialect and what was being done. Unique
// and foreign key violations additionally wrap the matching repository
// sentinel.
func (d Dialect) wrapWrite(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %s: %w: %w", d, what, repository.ErrUniqueViolation, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %s: %w: %w", d, what, repository.ErrForeignKeyViolation, err)
	}
	return fmt.Errorf("%s: %s: %w", d, what, err)
}

// likePattern builds a case-insensitive substring pattern for
// LOWER(col) LIKE ? ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
