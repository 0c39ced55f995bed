package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"bookcatalog/internal/entity"
)

const pgUniqueViolation = "23505"

// pgxBackend runs the gateway on a pgx connection pool.
type pgxBackend struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func newPGXBackend(pool *pgxpool.Pool) *pgxBackend {
	return &pgxBackend{pool: pool, db: stdlib.OpenDBFromPool(pool)}
}

func (b *pgxBackend) dialect() string { return dialectPostgres }

func (b *pgxBackend) begin(ctx context.Context) (conn, error) {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgxConn{tx: tx}, nil
}

func (b *pgxBackend) ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *pgxBackend) stdDB() *sql.DB { return b.db }

func (b *pgxBackend) close() error {
	err := b.db.Close()
	b.pool.Close()
	return err
}

type pgxConn struct {
	tx pgx.Tx
}

func (c *pgxConn) selectBooks(ctx context.Context, query string, args []any) ([]entity.Book, error) {
	rows, err := c.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[entity.Book])
}

func (c *pgxConn) exec(ctx context.Context, query string, args []any) (int64, error) {
	tag, err := c.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, translatePGError(err)
	}
	return tag.RowsAffected(), nil
}

func (c *pgxConn) insert(ctx context.Context, ds *goqu.InsertDataset) (int64, error) {
	query, args, err := ds.Returning(colID).ToSQL()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := c.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, translatePGError(err)
	}
	return id, nil
}

func (c *pgxConn) commit(ctx context.Context) error {
	return translatePGError(c.tx.Commit(ctx))
}

func (c *pgxConn) rollback(ctx context.Context) error {
	err := c.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func translatePGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}
