package backend

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrNotConfigured means no datastore is configured. It is distinct from an
	// empty result so callers can switch to degraded mode.
	ErrNotConfigured = errors.New("backend not configured")
	// ErrNotFound is returned when a single record lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials is returned by password sign-in.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken is returned by sign-up when the email is registered.
	ErrEmailTaken = errors.New("user already registered")
	// ErrSuperAdminExists is returned by CreateSuperAdmin once one exists.
	ErrSuperAdminExists = errors.New("super admin already exists")
)

const (
	pgUndefinedTable    = "42P01"
	postgrestNoRelation = "PGRST116"
	sqliteNoSuchTable   = "no such table: "
)

// IsNotConfigured reports whether err stems from a missing backend configuration.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsRelationMissing reports whether err means the schema is not set up yet:
// SQLSTATE 42P01 from pgx or lib/pq, SQLite's missing table error, or the
// PostgREST no-relation code. Anything else, including permission errors that
// mention a relation, is not a missing relation.
func IsRelationMissing(err error) bool {
	if err == nil || IsNotConfigured(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUndefinedTable
	}
	msg := err.Error()
	return strings.Contains(msg, sqliteNoSuchTable) || strings.Contains(msg, postgrestNoRelation)
}
