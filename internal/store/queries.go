package store

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"bookcatalog/internal/entity"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"

	tableBooks = "books"
	colID      = "id"
	colTitle   = "title"
	colAuthor  = "author"
	colYear    = "year"
	fnLower    = "LOWER"
)

func lower(v any) exp.SQLFunctionExpression {
	return goqu.Func(fnLower, v)
}

func whereClause(f Filter) []exp.Expression {
	var where []exp.Expression
	if f.Title != nil {
		where = append(where, lower(goqu.C(colTitle)).Eq(lower(*f.Title)))
	}
	if f.Author != nil {
		where = append(where, lower(goqu.C(colAuthor)).Eq(lower(*f.Author)))
	}
	if f.Year != nil {
		where = append(where, goqu.C(colYear).Eq(*f.Year))
	}
	if f.ExcludeID != 0 {
		where = append(where, goqu.C(colID).Neq(f.ExcludeID))
	}
	return where
}

func buildSelect(builder goqu.DialectWrapper, f Filter, p Page) *goqu.SelectDataset {
	ds := builder.
		From(tableBooks).
		Select(colID, colTitle, colAuthor, colYear).
		Order(goqu.C(colID).Asc()).
		Prepared(true)

	if where := whereClause(f); len(where) > 0 {
		ds = ds.Where(where...)
	}
	if p.Limit > 0 {
		ds = ds.Limit(uint(p.Limit))
		if p.Offset > 0 {
			ds = ds.Offset(uint(p.Offset))
		}
	}
	return ds
}

func buildSelectByID(builder goqu.DialectWrapper, id int64) *goqu.SelectDataset {
	return builder.
		From(tableBooks).
		Select(colID, colTitle, colAuthor, colYear).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true)
}

func buildInsert(builder goqu.DialectWrapper, b entity.Book) *goqu.InsertDataset {
	return builder.
		Insert(tableBooks).
		Rows(goqu.Record{
			colTitle:  b.Title,
			colAuthor: b.Author,
			colYear:   nullableInt(b.Year),
		}).
		Prepared(true)
}

func buildUpdate(builder goqu.DialectWrapper, id int64, c Changes) *goqu.UpdateDataset {
	set := goqu.Record{}
	if c.Title != nil {
		set[colTitle] = *c.Title
	}
	if c.Author != nil {
		set[colAuthor] = *c.Author
	}
	if c.Year != nil {
		set[colYear] = *c.Year
	}
	return builder.
		Update(tableBooks).
		Set(set).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true)
}

func buildDelete(builder goqu.DialectWrapper, id int64) *goqu.DeleteDataset {
	return builder.
		Delete(tableBooks).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
