package store

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"bookcatalog/internal/entity"
)

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// scope is the Tx handed to WithScope callbacks.
type scope struct {
	conn    conn
	builder goqu.DialectWrapper
	logger  Logger
}

func (s *scope) toSQL(op string, b sqlBuilder) (string, []any, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return "", nil, wrapErr("build "+op, err)
	}
	return query, args, nil
}

func (s *scope) logQuery(query string, start time.Time) {
	s.logger.Debug(logMsgSQL, logAttrQuery, query, logAttrDurationMS, time.Since(start).Milliseconds())
}

func (s *scope) Find(ctx context.Context, f Filter, p Page) ([]entity.Book, error) {
	query, args, err := s.toSQL("select", buildSelect(s.builder, f, p))
	if err != nil {
		return nil, err
	}
	start := time.Now()
	books, err := s.conn.selectBooks(ctx, query, args)
	if err != nil {
		return nil, wrapErr("select", err)
	}
	s.logQuery(query, start)
	return books, nil
}

func (s *scope) Exists(ctx context.Context, f Filter) (bool, error) {
	books, err := s.Find(ctx, f, Page{Limit: 1})
	if err != nil {
		return false, err
	}
	return len(books) > 0, nil
}

func (s *scope) Get(ctx context.Context, id int64) (entity.Book, error) {
	query, args, err := s.toSQL("select by id", buildSelectByID(s.builder, id))
	if err != nil {
		return entity.Book{}, err
	}
	start := time.Now()
	books, err := s.conn.selectBooks(ctx, query, args)
	if err != nil {
		return entity.Book{}, wrapErr("select by id", err)
	}
	s.logQuery(query, start)
	if len(books) == 0 {
		return entity.Book{}, ErrNotFound
	}
	return books[0], nil
}

func (s *scope) Insert(ctx context.Context, b entity.Book) (entity.Book, error) {
	start := time.Now()
	id, err := s.conn.insert(ctx, buildInsert(s.builder, b))
	if err != nil {
		return entity.Book{}, wrapErr("insert", err)
	}
	s.logQuery("insert into "+tableBooks, start)
	b.ID = id
	return b, nil
}

func (s *scope) Update(ctx context.Context, id int64, c Changes) (bool, error) {
	if c.Empty() {
		return false, wrapErr("update", errors.New("no columns to update"))
	}
	query, args, err := s.toSQL("update", buildUpdate(s.builder, id, c))
	if err != nil {
		return false, err
	}
	start := time.Now()
	n, err := s.conn.exec(ctx, query, args)
	if err != nil {
		return false, wrapErr("update", err)
	}
	s.logQuery(query, start)
	return n > 0, nil
}

func (s *scope) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.toSQL("delete", buildDelete(s.builder, id))
	if err != nil {
		return false, err
	}
	start := time.Now()
	n, err := s.conn.exec(ctx, query, args)
	if err != nil {
		return false, wrapErr("delete", err)
	}
	s.logQuery(query, start)
	return n > 0, nil
}
