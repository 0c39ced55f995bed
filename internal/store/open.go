package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with a Unicode-aware LOWER. The built-in one folds
// ASCII only, and both the filters and the unique index compare through it.
const sqliteDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(fnLower, strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

const (
	connectionTimeout  = 2 * time.Second
	sqliteBusyTimeout  = 5000
	sqliteSchemePrefix = "sqlite:"
	fileSchemePrefix   = "file:"
)

// Config selects and sizes the backend.
type Config struct {
	// DSN is a postgres:// or postgresql:// URL for Postgres, or sqlite:<path>
	// (sqlite::memory: for an in-memory database) or a file: URI for SQLite.
	DSN string
	// MaxConns caps the Postgres pool. SQLite always uses a single connection.
	MaxConns int
}

// Open connects to the backend named by cfg.DSN and verifies it with a ping.
func Open(ctx context.Context, cfg Config, opts ...Option) (*SQLGateway, error) {
	var (
		b   backend
		err error
	)
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		b, err = openPostgres(ctx, cfg)
	case strings.HasPrefix(cfg.DSN, sqliteSchemePrefix), strings.HasPrefix(cfg.DSN, fileSchemePrefix):
		b, err = openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, RedactDSN(cfg.DSN))
	}
	if err != nil {
		return nil, err
	}
	return newGateway(b, opts...), nil
}

func openPostgres(ctx context.Context, cfg Config) (backend, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(cfg.DSN), err)
	}
	return newPGXBackend(pool), nil
}

func openSQLite(ctx context.Context, cfg Config) (backend, error) {
	db, err := sqlx.Open(sqliteDriver, sqliteConnString(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite allows one writer. A single connection also keeps :memory:
	// databases alive for the lifetime of the gateway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verifying sqlite connection: %w", err)
	}
	return newSQLXBackend(db), nil
}

func sqliteConnString(dsn string) string {
	if strings.HasPrefix(dsn, fileSchemePrefix) {
		return dsn
	}
	path := strings.TrimPrefix(dsn, sqliteSchemePrefix)
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, sqliteBusyTimeout)
}

// RedactDSN hides the credentials of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
