package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToParseConfig     = errors.New("pg.errors.failed_to_parse_config")
	ErrFailedToConnect         = errors.New("pg.errors.failed_to_connect")
	ErrHealthcheckFailed       = errors.New("pg.errors.healthcheck_failed")
	ErrFailedToApplyMigrations = errors.New("pg.errors.failed_to_apply_migrations")
	ErrNoMigrations            = errors.New("pg.errors.no_migrations")
	ErrSchemaNotMigrated       = errors.New("pg.errors.schema_not_migrated")
)

// IsNotFoundError reports whether err means the query returned no rows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsUndefinedTableError reports whether err is a missing relation error,
// which usually means migrations were not applied.
func IsUndefinedTableError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// IsCheckViolationError reports whether err violates a CHECK constraint.
func IsCheckViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
