package store

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"bookcatalog/internal/entity"
)

// backend hides the driver behind the gateway. One implementation exists per
// supported driver stack.
type backend interface {
	dialect() string
	begin(ctx context.Context) (conn, error)
	ping(ctx context.Context) error
	// stdDB exposes a database/sql handle for schema migrations.
	stdDB() *sql.DB
	close() error
}

// conn is a single open transaction.
type conn interface {
	selectBooks(ctx context.Context, query string, args []any) ([]entity.Book, error)
	exec(ctx context.Context, query string, args []any) (int64, error)
	insert(ctx context.Context, ds *goqu.InsertDataset) (int64, error)
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
}
