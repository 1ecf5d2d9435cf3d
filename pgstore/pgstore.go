// Package pgstore holds the Postgres implementations of the gacha store
// interfaces. Invariants that must survive concurrent requests (slot
// uniqueness, quota counters) are enforced here with constraints and
// ON CONFLICT upserts, not with application locks.
package pgstore

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of pgxpool.Pool the stores need. pgxmock's pool
// interface satisfies it too, which is what the tests run against.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sb builds queries with Postgres dollar placeholders.
var sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
