// Package pgstore is the PostgreSQL account store.
//
// The subscription flag is read from accounts.is_pro as whatever the billing
// integration wrote there. Usage lives in account_usage, one row per
// (account, feature), and is incremented with a single upsert.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
	"github.com/dmitrymomot/quotakit/pkg/pg"
)

// Migrations holds the schema, apply it with pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	selectFlag = `SELECT is_pro FROM accounts WHERE id = $1`

	selectCounter = `SELECT count FROM account_usage WHERE account_id = $1 AND feature = $2`

	upsertCounter = `INSERT INTO account_usage (account_id, feature, count)
VALUES ($1, $2, $3)
ON CONFLICT (account_id, feature) DO UPDATE SET count = EXCLUDED.count, updated_at = now()`

	incrementCounter = `INSERT INTO account_usage (account_id, feature, count)
VALUES ($1, $2, $3)
ON CONFLICT (account_id, feature) DO UPDATE SET count = account_usage.count + EXCLUDED.count, updated_at = now()
RETURNING count`
)

type Store struct {
	db DBTX
}

var (
	_ accounts.Store       = (*Store)(nil)
	_ accounts.Incrementer = (*Store)(nil)
)

func New(db DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error) {
	var raw any
	if err := s.db.QueryRow(ctx, selectFlag, accountID).Scan(&raw); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, accounts.ErrAccountNotFound
		}
		return nil, queryError("read subscription flag", err)
	}
	return raw, nil
}

func (s *Store) ReadUsageCounter(ctx context.Context, accountID, feature string) (int64, bool, error) {
	var n int64
	if err := s.db.QueryRow(ctx, selectCounter, accountID, feature).Scan(&n); err != nil {
		if pg.IsNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, queryError("read usage counter", err)
	}
	return n, true, nil
}

func (s *Store) WriteUsageCounter(ctx context.Context, accountID, feature string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: %d", accounts.ErrInvalidCounter, value)
	}
	if _, err := s.db.Exec(ctx, upsertCounter, accountID, feature, value); err != nil {
		return queryError("write usage counter", err)
	}
	return nil
}

func (s *Store) IncrementUsageCounter(ctx context.Context, accountID, feature string, delta int64) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, incrementCounter, accountID, feature, delta).Scan(&n); err != nil {
		if pg.IsCheckViolationError(err) {
			return 0, errors.Join(accounts.ErrInvalidCounter, err)
		}
		return 0, queryError("increment usage counter", err)
	}
	return n, nil
}

func queryError(op string, err error) error {
	if pg.IsUndefinedTableError(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(pg.ErrSchemaNotMigrated, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
