// Package store is the gateway to the relational backend holding the book catalog.
//
// Every catalog operation runs inside one transactional scope obtained from
// Gateway.WithScope. The scope is committed when the callback returns nil and
// rolled back on every other exit path, including panics and cancelled contexts.
package store

import (
	"context"
	"errors"
	"fmt"

	"bookcatalog/internal/entity"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks bookcatalog/internal/store Gateway,Tx

var (
	// ErrStore marks transport and backend failures.
	ErrStore = errors.New("store failure")
	// ErrDuplicate is returned when a write violates the books uniqueness index.
	ErrDuplicate = errors.New("duplicate book")
	// ErrNotFound is returned by Tx.Get when no row has the requested id.
	ErrNotFound = errors.New("book not found")
	// ErrUnsupportedDSN is returned by Open for DSNs naming an unknown backend.
	ErrUnsupportedDSN = errors.New("unsupported database dsn")
)

// Filter narrows a select. Nil fields do not constrain the result.
// Title and Author are matched case-insensitively.
type Filter struct {
	Title  *string
	Author *string
	Year   *int
	// ExcludeID drops the row with this id from the result. Zero excludes nothing.
	ExcludeID int64
}

// Page slices an ordered select. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Changes lists the columns an update writes. Nil fields are left untouched.
type Changes struct {
	Title  *string
	Author *string
	Year   *int
}

// Empty reports whether no column would be written.
func (c Changes) Empty() bool {
	return c.Title == nil && c.Author == nil && c.Year == nil
}

// Tx is the handle passed to a transactional scope.
type Tx interface {
	// Find returns the rows matching f ordered by id.
	Find(ctx context.Context, f Filter, p Page) ([]entity.Book, error)
	// Exists reports whether at least one row matches f.
	Exists(ctx context.Context, f Filter) (bool, error)
	Get(ctx context.Context, id int64) (entity.Book, error)
	// Insert stores b and returns it with the id assigned by the backend.
	Insert(ctx context.Context, b entity.Book) (entity.Book, error)
	// Update reports false when no row has the given id.
	Update(ctx context.Context, id int64, c Changes) (bool, error)
	// Delete reports false when no row has the given id.
	Delete(ctx context.Context, id int64) (bool, error)
}

// Gateway owns the connection pool to the backend.
type Gateway interface {
	WithScope(ctx context.Context, fn func(Tx) error) error
	// ResetSchema drops and recreates the books table. It destroys all data.
	ResetSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func wrapErr(op string, err error) error {
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrStore) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
