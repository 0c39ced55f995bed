package book

import (
	"context"
	"errors"
	"fmt"

	"bookcatalog/internal/entity"
	"bookcatalog/internal/store"
)

// Service implements the catalog operations. Each call runs in one store scope,
// so a rejected write leaves nothing behind.
type Service struct {
	gw store.Gateway
}

// NewService creates a new catalog service.
func NewService(gw store.Gateway) *Service {
	return &Service{gw: gw}
}

// Setup drops and recreates the catalog schema.
func (s *Service) Setup(ctx context.Context) error {
	if err := s.gw.ResetSchema(ctx); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	return nil
}

// Create stores a new book. Duplicates are only looked for when the year is
// known; books without a year are always inserted.
func (s *Service) Create(ctx context.Context, in CreateInput) (entity.Book, error) {
	if err := check(in); err != nil {
		return entity.Book{}, err
	}

	var created entity.Book
	err := s.gw.WithScope(ctx, func(tx store.Tx) error {
		if in.Year != nil {
			exists, err := tx.Exists(ctx, store.Filter{Title: &in.Title, Author: &in.Author, Year: in.Year})
			if err != nil {
				return err
			}
			if exists {
				return ErrConflict
			}
		}

		b, err := tx.Insert(ctx, entity.Book{Title: in.Title, Author: in.Author, Year: in.Year})
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return entity.Book{}, mapStoreErr("create book", err)
	}
	return created, nil
}

// List returns one page of books ordered by id. An empty page is not an error.
func (s *Service) List(ctx context.Context, p ListParams) ([]entity.Book, error) {
	if err := check(p); err != nil {
		return nil, err
	}

	var books []entity.Book
	err := s.gw.WithScope(ctx, func(tx store.Tx) error {
		var err error
		books, err = tx.Find(ctx, store.Filter{}, store.Page{Limit: p.Limit, Offset: p.Offset})
		return err
	})
	if err != nil {
		return nil, mapStoreErr("list books", err)
	}
	if books == nil {
		books = []entity.Book{}
	}
	return books, nil
}

// Search returns every book matching all given filters. Title and author match
// whole values case-insensitively. No match is ErrNotFound.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]entity.Book, error) {
	filter := store.Filter{Title: nonEmpty(p.Title), Author: nonEmpty(p.Author), Year: p.Year}

	var books []entity.Book
	err := s.gw.WithScope(ctx, func(tx store.Tx) error {
		var err error
		books, err = tx.Find(ctx, filter, store.Page{})
		return err
	})
	if err != nil {
		return nil, mapStoreErr("search books", err)
	}
	if len(books) == 0 {
		return nil, ErrNotFound
	}
	return books, nil
}

// Update changes the supplied fields of a book and returns the stored result.
// Another book matching every supplied field is a conflict.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (entity.Book, error) {
	if in.empty() {
		return entity.Book{}, ErrNoFields
	}
	if err := check(in); err != nil {
		return entity.Book{}, err
	}

	var updated entity.Book
	err := s.gw.WithScope(ctx, func(tx store.Tx) error {
		exists, err := tx.Exists(ctx, store.Filter{Title: in.Title, Author: in.Author, Year: in.Year, ExcludeID: id})
		if err != nil {
			return err
		}
		if exists {
			return ErrConflict
		}

		ok, err := tx.Update(ctx, id, store.Changes{Title: in.Title, Author: in.Author, Year: in.Year})
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		updated, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return entity.Book{}, mapStoreErr("update book", err)
	}
	return updated, nil
}

// Delete removes a book.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.gw.WithScope(ctx, func(tx store.Tx) error {
		ok, err := tx.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapStoreErr("delete book", err)
	}
	return nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.gw.Ping(ctx)
}

func mapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
