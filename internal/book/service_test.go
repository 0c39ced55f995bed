package book_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/book"
	"bookcatalog/internal/entity"
	"bookcatalog/internal/testutil"
)

func newService(t *testing.T) *book.Service {
	t.Helper()
	return book.NewService(testutil.NewGateway(t))
}

func mustCreate(t *testing.T, svc *book.Service, title, author string, year *int) entity.Book {
	t.Helper()
	b, err := svc.Create(context.Background(), book.CreateInput{Title: title, Author: author, Year: year})
	require.NoError(t, err)
	return b
}

func allBooks(t *testing.T, svc *book.Service) []entity.Book {
	t.Helper()
	books, err := svc.List(context.Background(), book.ListParams{Limit: 100})
	require.NoError(t, err)
	return books
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("distinct books get unique ids", func(t *testing.T) {
		svc := newService(t)
		inputs := []book.CreateInput{
			{Title: "Emma", Author: "Jane Austen", Year: testutil.Year(1815)},
			{Title: "Emma", Author: "Jane Austen", Year: testutil.Year(1816)},
			{Title: "Persuasion", Author: "Jane Austen", Year: testutil.Year(1817)},
			{Title: "Dune", Author: "Frank Herbert"},
		}

		ids := map[int64]bool{}
		for _, in := range inputs {
			b, err := svc.Create(ctx, in)
			require.NoError(t, err)
			assert.NotZero(t, b.ID)
			assert.Equal(t, in.Title, b.Title)
			assert.Equal(t, in.Author, b.Author)
			assert.Equal(t, in.Year, b.Year)
			ids[b.ID] = true
		}
		assert.Len(t, ids, len(inputs))
		assert.Len(t, allBooks(t, svc), len(inputs))
	})

	t.Run("case-insensitive duplicate is a conflict", func(t *testing.T) {
		svc := newService(t)
		mustCreate(t, svc, "Emma", "Jane Austen", testutil.Year(1815))

		_, err := svc.Create(ctx, book.CreateInput{Title: "EMMA", Author: "jane austen", Year: testutil.Year(1815)})
		assert.ErrorIs(t, err, book.ErrConflict)
		assert.Len(t, allBooks(t, svc), 1)
	})

	t.Run("non-ASCII text is compared case-insensitively", func(t *testing.T) {
		svc := newService(t)
		mustCreate(t, svc, "Éclair", "Zoë", testutil.Year(1890))

		_, err := svc.Create(ctx, book.CreateInput{Title: "éclair", Author: "zoë", Year: testutil.Year(1890)})
		assert.ErrorIs(t, err, book.ErrConflict)

		found, err := svc.Search(ctx, book.SearchParams{Title: testutil.Str("ÉCLAIR")})
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("large year round-trips", func(t *testing.T) {
		svc := newService(t)
		b := mustCreate(t, svc, "Far Future", "Nobody", testutil.Year(3_000_000_000))
		assert.Equal(t, testutil.Year(3_000_000_000), b.Year)
	})

	t.Run("books without a year are never duplicates", func(t *testing.T) {
		svc := newService(t)
		a := mustCreate(t, svc, "Emma", "Jane Austen", nil)
		b := mustCreate(t, svc, "Emma", "Jane Austen", nil)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Nil(t, b.Year)
		assert.Len(t, allBooks(t, svc), 2)
	})

	t.Run("year zero is a known year", func(t *testing.T) {
		svc := newService(t)
		mustCreate(t, svc, "Gilgamesh", "Unknown", testutil.Year(0))

		_, err := svc.Create(ctx, book.CreateInput{Title: "Gilgamesh", Author: "Unknown", Year: testutil.Year(0)})
		assert.ErrorIs(t, err, book.ErrConflict)
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name  string
			in    book.CreateInput
			field string
		}{
			{name: "empty title", in: book.CreateInput{Author: "A"}, field: "title"},
			{name: "long title", in: book.CreateInput{Title: strings.Repeat("t", 51), Author: "A"}, field: "title"},
			{name: "empty author", in: book.CreateInput{Title: "T"}, field: "author"},
			{name: "long author", in: book.CreateInput{Title: "T", Author: strings.Repeat("a", 31)}, field: "author"},
			{name: "negative year", in: book.CreateInput{Title: "T", Author: "A", Year: testutil.Year(-1)}, field: "year"},
		}

		svc := newService(t)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(ctx, tt.in)
				require.ErrorIs(t, err, book.ErrValidation)

				var verr *book.ValidationError
				require.True(t, errors.As(err, &verr))
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, tt.field, verr.Fields[0].Field)
			})
		}
		assert.Empty(t, allBooks(t, svc))
	})

	t.Run("boundary lengths are accepted", func(t *testing.T) {
		svc := newService(t)
		b := mustCreate(t, svc, strings.Repeat("t", 50), strings.Repeat("a", 30), nil)
		assert.Len(t, b.Title, 50)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store is an empty page", func(t *testing.T) {
		svc := newService(t)
		books, err := svc.List(ctx, book.ListParams{Limit: book.DefaultLimit})
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("pages in insertion order", func(t *testing.T) {
		svc := newService(t)
		var created []entity.Book
		for _, title := range []string{"A", "B", "C", "D", "E"} {
			created = append(created, mustCreate(t, svc, title, "Author", nil))
		}

		page, err := svc.List(ctx, book.ListParams{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, created[1:3], page)

		tail, err := svc.List(ctx, book.ListParams{Limit: 10, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, created[4:], tail)

		past, err := svc.List(ctx, book.ListParams{Limit: 10, Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("out of range paging", func(t *testing.T) {
		svc := newService(t)
		for _, p := range []book.ListParams{
			{Limit: 0},
			{Limit: 101},
			{Limit: 10, Offset: -1},
		} {
			_, err := svc.List(ctx, p)
			assert.ErrorIs(t, err, book.ErrValidation, "%+v", p)
		}
	})
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	emma := mustCreate(t, svc, "Emma", "Jane Austen", testutil.Year(1815))
	persuasion := mustCreate(t, svc, "Persuasion", "Jane Austen", testutil.Year(1817))
	dune := mustCreate(t, svc, "Dune", "Frank Herbert", nil)

	tests := []struct {
		name   string
		params book.SearchParams
		want   []entity.Book
	}{
		{name: "no filters", params: book.SearchParams{}, want: []entity.Book{emma, persuasion, dune}},
		{name: "title any case", params: book.SearchParams{Title: testutil.Str("eMMa")}, want: []entity.Book{emma}},
		{name: "author", params: book.SearchParams{Author: testutil.Str("JANE AUSTEN")}, want: []entity.Book{emma, persuasion}},
		{name: "author and year", params: book.SearchParams{Author: testutil.Str("jane austen"), Year: testutil.Year(1817)}, want: []entity.Book{persuasion}},
		{name: "empty title ignored", params: book.SearchParams{Title: testutil.Str(""), Author: testutil.Str("frank herbert")}, want: []entity.Book{dune}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no match", func(t *testing.T) {
		for _, p := range []book.SearchParams{
			{Title: testutil.Str("Emm")},
			{Title: testutil.Str("Emma"), Year: testutil.Year(1900)},
			{Year: testutil.Year(2024)},
		} {
			_, err := svc.Search(ctx, p)
			assert.ErrorIs(t, err, book.ErrNotFound, "%+v", p)
		}
	})
}

func TestService_CreateThenSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	in := book.CreateInput{Title: "Middlemarch", Author: "George Eliot", Year: testutil.Year(1871)}

	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	found, err := svc.Search(ctx, book.SearchParams{Title: &in.Title, Author: &in.Author, Year: in.Year})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, entity.Book{ID: created.ID, Title: in.Title, Author: in.Author, Year: in.Year}, found[0])
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("changes only supplied fields", func(t *testing.T) {
		svc := newService(t)
		b := mustCreate(t, svc, "Emma", "Jane Austen", testutil.Year(1815))

		updated, err := svc.Update(ctx, b.ID, book.UpdateInput{Year: testutil.Year(1816)})
		require.NoError(t, err)
		assert.Equal(t, entity.Book{ID: b.ID, Title: "Emma", Author: "Jane Austen", Year: testutil.Year(1816)}, updated)
	})

	t.Run("conflict leaves target unchanged", func(t *testing.T) {
		svc := newService(t)
		mustCreate(t, svc, "X", "Someone", testutil.Year(2000))
		target := mustCreate(t, svc, "Y", "Other", testutil.Year(2001))

		_, err := svc.Update(ctx, target.ID, book.UpdateInput{Title: testutil.Str("x")})
		assert.ErrorIs(t, err, book.ErrConflict)

		found, err := svc.Search(ctx, book.SearchParams{Title: testutil.Str("Y")})
		require.NoError(t, err)
		assert.Equal(t, []entity.Book{target}, found)
	})

	t.Run("supplied fields that match itself are not a conflict", func(t *testing.T) {
		svc := newService(t)
		b := mustCreate(t, svc, "Emma", "Jane Austen", testutil.Year(1815))

		updated, err := svc.Update(ctx, b.ID, book.UpdateInput{Title: testutil.Str("EMMA")})
		require.NoError(t, err)
		assert.Equal(t, "EMMA", updated.Title)
	})

	t.Run("no fields", func(t *testing.T) {
		svc := newService(t)
		b := mustCreate(t, svc, "Emma", "Jane Austen", nil)

		_, err := svc.Update(ctx, b.ID, book.UpdateInput{})
		assert.ErrorIs(t, err, book.ErrNoFields)
		assert.ErrorIs(t, err, book.ErrValidation)
	})

	t.Run("invalid values", func(t *testing.T) {
		svc := newService(t)
		b := mustCreate(t, svc, "Emma", "Jane Austen", nil)

		for _, in := range []book.UpdateInput{
			{Title: testutil.Str("")},
			{Title: testutil.Str(strings.Repeat("t", 51))},
			{Author: testutil.Str(strings.Repeat("a", 31))},
			{Year: testutil.Year(-5)},
		} {
			_, err := svc.Update(ctx, b.ID, in)
			assert.ErrorIs(t, err, book.ErrValidation)
			assert.NotErrorIs(t, err, book.ErrNoFields)
		}
	})

	t.Run("missing book", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Update(ctx, 404, book.UpdateInput{Title: testutil.Str("Nope")})
		assert.ErrorIs(t, err, book.ErrNotFound)
	})

	t.Run("only supplied fields are compared", func(t *testing.T) {
		svc := newService(t)
		mustCreate(t, svc, "Emma", "Jane Austen", testutil.Year(1815))
		target := mustCreate(t, svc, "Dune", "Frank Herbert", nil)

		_, err := svc.Update(ctx, target.ID, book.UpdateInput{Year: testutil.Year(1815)})
		assert.ErrorIs(t, err, book.ErrConflict)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	b := mustCreate(t, svc, "Emma", "Jane Austen", nil)

	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.Empty(t, allBooks(t, svc))

	assert.ErrorIs(t, svc.Delete(ctx, b.ID), book.ErrNotFound)
}

func TestService_Setup(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	mustCreate(t, svc, "Emma", "Jane Austen", nil)

	require.NoError(t, svc.Setup(ctx))
	assert.Empty(t, allBooks(t, svc))

	mustCreate(t, svc, "Dune", "Frank Herbert", nil)
	assert.Len(t, allBooks(t, svc), 1)
}

func TestService_CancelledContext(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx, book.CreateInput{Title: "Emma", Author: "Jane Austen"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, book.ErrConflict)
	assert.Empty(t, allBooks(t, svc))
}
