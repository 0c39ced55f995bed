package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"bookcatalog/internal/entity"
)

// sqlxBackend runs the gateway on database/sql through sqlx. It is used with
// the go-sqlite3 driver.
type sqlxBackend struct {
	db *sqlx.DB
}

func newSQLXBackend(db *sqlx.DB) *sqlxBackend {
	return &sqlxBackend{db: db}
}

func (b *sqlxBackend) dialect() string { return dialectSQLite }

func (b *sqlxBackend) begin(ctx context.Context) (conn, error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlxConn{tx: tx}, nil
}

func (b *sqlxBackend) ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *sqlxBackend) stdDB() *sql.DB { return b.db.DB }

func (b *sqlxBackend) close() error {
	return b.db.Close()
}

type sqlxConn struct {
	tx *sqlx.Tx
}

func (c *sqlxConn) selectBooks(ctx context.Context, query string, args []any) ([]entity.Book, error) {
	books := []entity.Book{}
	if err := c.tx.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *sqlxConn) exec(ctx context.Context, query string, args []any) (int64, error) {
	res, err := c.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateSQLiteError(err)
	}
	return res.RowsAffected()
}

func (c *sqlxConn) insert(ctx context.Context, ds *goqu.InsertDataset) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, err
	}
	res, err := c.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateSQLiteError(err)
	}
	return res.LastInsertId()
}

func (c *sqlxConn) commit(_ context.Context) error {
	return translateSQLiteError(c.tx.Commit())
}

func (c *sqlxConn) rollback(_ context.Context) error {
	err := c.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func translateSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicate
	}
	return err
}
