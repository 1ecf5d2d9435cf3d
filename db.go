package gacha

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// GetPool returns the process-wide connection pool, or (nil, nil) when
// DATABASE_URL is unset so callers can fall back to the file-backed stores.
func GetPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolOnce.Do(func() {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return
		}
		config, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			poolErr = err
			return
		}
		// Avoid "prepared statement already exists" with PgBouncer/Supabase: use simple protocol (no server-side prepared statements).
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		// Pool settings for Supabase/Render: idle timeout 4m, limit open conns for pooler
		config.MaxConnIdleTime = 4 * time.Minute
		config.MaxConns = 10
		pool, poolErr = pgxpool.NewWithConfig(ctx, config)
		if poolErr != nil {
			return
		}
		poolErr = pool.Ping(ctx)
	})
	return pool, poolErr
}

// Migrate applies the embedded schema migrations. Goose needs *sql.DB, so
// the pool's config is reused through the stdlib driver for the duration
// of the run.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return nil
	}
	db := stdlib.OpenDB(*p.Config().ConnConfig)
	defer db.Close()
	return migrateDB(ctx, db)
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
