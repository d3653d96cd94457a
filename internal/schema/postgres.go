package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

// pgProbe implements Probe using information_schema + pg_catalog, scoped to
// a single table. Query shapes are adapted from the teacher's whole-schema
// information_schema.tables/columns/table_constraints extractor, re-filtered
// with a WHERE table_name = $1 predicate.
type pgProbe struct{}

func (pgProbe) AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error {
	t := dialect.AdaptTableCase(dialect.Postgres, table)
	var n int
	err := db.QueryRowContext(ctx, `
        SELECT count(*) FROM information_schema.tables
        WHERE table_type = 'BASE TABLE' AND table_name = $1`, t).Scan(&n)
	if err != nil {
		return dberrors.ForTable(dberrors.MetadataError, table, "query table existence", err)
	}
	if n == 0 {
		return dberrors.ForTable(dberrors.TableNotFound, table, "table not found", nil)
	}
	return nil
}

func (pgProbe) ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error) {
	t := dialect.AdaptTableCase(dialect.Postgres, table)
	rows, err := db.QueryContext(ctx, `
        SELECT column_name, data_type, ordinal_position,
               coalesce(column_default, ''), coalesce(character_maximum_length, 0)
        FROM information_schema.columns
        WHERE table_name = $1
        ORDER BY ordinal_position`, t)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query columns", err)
	}
	defer rows.Close()

	var out []model.ColumnMetadata
	for rows.Next() {
		var col model.ColumnMetadata
		if err := rows.Scan(&col.Name, &col.TypeName, &col.OrdinalPosition, &col.DefaultExpr, &col.Size); err != nil {
			return nil, dberrors.ForTable(dberrors.MetadataError, table, "scan column", err)
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func (pgProbe) PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	t := dialect.AdaptTableCase(dialect.Postgres, table)
	rows, err := db.QueryContext(ctx, `
        SELECT a.attname
        FROM pg_index i
        JOIN pg_class c ON i.indrelid = c.oid
        JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
        WHERE c.relname = $1 AND i.indisprimary
        ORDER BY array_position(i.indkey, a.attnum)`, t)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query primary key", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, dberrors.ForTable(dberrors.MetadataError, table, "scan primary key", err)
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func (pgProbe) ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	t := dialect.AdaptTableCase(dialect.Postgres, table)
	q := `
        SELECT tc.table_name AS from_table, string_agg(kcu.column_name, ',' ORDER BY kcu.ordinal_position) AS from_cols,
               rkcu.table_name AS to_table, string_agg(rkcu.column_name, ',' ORDER BY rkcu.ordinal_position) AS to_cols
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage kcu
          ON tc.constraint_name = kcu.constraint_name AND tc.constraint_schema = kcu.constraint_schema
        JOIN information_schema.referential_constraints rc
          ON tc.constraint_name = rc.constraint_name AND tc.constraint_schema = rc.constraint_schema
        JOIN information_schema.key_column_usage rkcu
          ON rc.unique_constraint_name = rkcu.constraint_name AND rc.unique_constraint_schema = rkcu.constraint_schema
         AND kcu.ordinal_position = rkcu.ordinal_position
        WHERE tc.constraint_type = 'FOREIGN KEY' AND %s = $1
        GROUP BY tc.table_name, rkcu.table_name`

	// exported keys: table is the referenced (parent) side.
	exported, err := queryFkRows(ctx, db, fmt.Sprintf(q, "rkcu.table_name"), t, false)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query exported keys", err)
	}
	// imported keys: table is the referencing (child) side.
	imported, err := queryFkRows(ctx, db, fmt.Sprintf(q, "tc.table_name"), t, true)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query imported keys", err)
	}
	return dedupeSelfReferencing(exported, imported), nil
}

func queryFkRows(ctx context.Context, db *sqlx.DB, query, table string, inverted bool) ([]model.Fk, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Fk
	for rows.Next() {
		var fromTable, fromCols, toTable, toCols string
		if err := rows.Scan(&fromTable, &fromCols, &toTable, &toCols); err != nil {
			return nil, err
		}
		out = append(out, model.Fk{
			FKTable:  fromTable,
			FKColumn: firstOrEmpty(splitCSV(fromCols)),
			PKTable:  toTable,
			PKColumn: firstOrEmpty(splitCSV(toCols)),
			Inverted: inverted,
		})
	}
	return out, rows.Err()
}

// dedupeSelfReferencing drops an imported-set entry that duplicates an
// exported-set entry for a self-referencing table (spec.md §3's Fk.Equal
// ignores Inverted for exactly this reason).
func dedupeSelfReferencing(exported, imported []model.Fk) []model.Fk {
	out := make([]model.Fk, 0, len(exported)+len(imported))
	out = append(out, exported...)
	for _, fk := range imported {
		dup := false
		for _, e := range exported {
			if fk.Equal(e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, fk)
		}
	}
	return out
}

func init() {
	Register(dialect.Postgres, pgProbe{})
}
