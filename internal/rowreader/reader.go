// Package rowreader implements the Row Reader (spec.md §4.4): parameterized
// single-column SELECTs against a live connection, materialized into
// model.Record values via the Value Coercer.
package rowreader

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"dbexport/internal/cache"
	"dbexport/internal/coerce"
	"dbexport/internal/dberrors"
	"dbexport/internal/model"
)

// Reader executes `SELECT * FROM <table> WHERE <col> = ?` queries, binding
// the filter value via the Value Coercer and attaching result-set metadata
// from the supplied column cache.
type Reader struct {
	DB          *sqlx.DB
	Columns     *cache.ColumnCache
	Placeholder sq.PlaceholderFormat
}

// NewReader builds a Reader. placeholder defaults to sq.Question (MySQL and
// SQLite binding); callers targeting Postgres pass sq.Dollar, SQL Server
// sq.AtP (@p1) and Oracle sq.Colon (:1), matching the internal/schema
// probes for those dialects.
func NewReader(db *sqlx.DB, columns *cache.ColumnCache, placeholder sq.PlaceholderFormat) *Reader {
	if placeholder == nil {
		placeholder = sq.Question
	}
	return &Reader{DB: db, Columns: columns, Placeholder: placeholder}
}

// SelectByColumn runs `SELECT * FROM table WHERE col = filterValue` and
// materializes every returned row into a *model.Record, looking up each
// result column's metadata case-insensitively in cols.
func (r *Reader) SelectByColumn(ctx context.Context, table, col string, filterValue any, cols *cache.OrderedColumns) ([]*model.Record, error) {
	query, args, err := sq.Select("*").From(table).Where(sq.Eq{col: filterValue}).PlaceholderFormat(r.Placeholder).ToSql()
	if err != nil {
		return nil, dberrors.ForTable(dberrors.QueryError, table, "build select", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.QueryError, table, "execute select", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, dberrors.ForTable(dberrors.QueryError, table, "read result columns", err)
	}

	var out []*model.Record
	for rows.Next() {
		rec, err := scanRow(rows, table, colNames, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// scanRow materializes one result row into a Record: for column index
// 1..N it builds a Cell named from result-set metadata, valued from the
// driver's native scan target, with Metadata looked up case-insensitively.
func scanRow(rows *sql.Rows, table string, colNames []string, cols *cache.OrderedColumns) (*model.Record, error) {
	values := make([]any, len(colNames))
	ptrs := make([]any, len(colNames))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, dberrors.ForTable(dberrors.QueryError, table, "scan row", err)
	}

	record := &model.Record{Table: table}
	for i, name := range colNames {
		var meta model.ColumnMetadata
		if cols != nil {
			if m, ok := cols.Get(name); ok {
				meta = m
			}
		}
		record.Cells = append(record.Cells, &model.Cell{
			Name:     name,
			Value:    values[i],
			Metadata: meta,
		})
	}
	return record, nil
}

// ResolvePK promotes the given primary-key column's value from rec into a
// normalized RowLink, per spec.md §4.4 ("the PK column's value is promoted
// to the record's rowLink.pk").
func ResolvePK(rec *model.Record, table, pkColumn string) (model.RowLink, bool) {
	cell := rec.Cell(pkColumn)
	if cell == nil || cell.Value == nil {
		return model.RowLink{}, false
	}
	link := model.NewRowLink(table, cell.Value)
	rec.RowLink = link
	return link, true
}

// BindFilterValue applies the Value Coercer to a textual filter value
// before handing it to SelectByColumn, for callers (e.g. the CLI) whose
// root pk arrives as a string.
func BindFilterValue(raw string, meta model.ColumnMetadata) (any, error) {
	b, err := coerce.Coerce(raw, meta)
	if err != nil {
		return nil, err
	}
	if b.IsNull {
		return nil, nil
	}
	return b.Value, nil
}
