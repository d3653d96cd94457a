package schema

import (
	"fmt"

	"context"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

// myProbe implements Probe for MySQL/MariaDB via information_schema,
// adapted from the teacher's whole-schema extractor.
type myProbe struct{}

func (myProbe) AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error {
	t := dialect.AdaptTableCase(dialect.MySQL, table)
	var n int
	err := db.QueryRowContext(ctx, `
        SELECT count(*) FROM information_schema.tables
        WHERE table_type = 'BASE TABLE' AND table_name = ?`, t).Scan(&n)
	if err != nil {
		return dberrors.ForTable(dberrors.MetadataError, table, "query table existence", err)
	}
	if n == 0 {
		return dberrors.ForTable(dberrors.TableNotFound, table, "table not found", nil)
	}
	return nil
}

func (myProbe) ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error) {
	t := dialect.AdaptTableCase(dialect.MySQL, table)
	rows, err := db.QueryContext(ctx, `
        SELECT column_name, column_type, ordinal_position,
               coalesce(column_default, ''), coalesce(character_maximum_length, 0)
        FROM information_schema.columns
        WHERE table_name = ?
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

func (myProbe) PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	t := dialect.AdaptTableCase(dialect.MySQL, table)
	rows, err := db.QueryContext(ctx, `
        SELECT k.column_name
        FROM information_schema.key_column_usage k
        JOIN information_schema.table_constraints tc
          ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
        WHERE tc.constraint_type = 'PRIMARY KEY' AND k.table_name = ?
        ORDER BY k.ordinal_position`, t)
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

func (myProbe) ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	t := dialect.AdaptTableCase(dialect.MySQL, table)
	q := `
        SELECT table_name AS from_table, group_concat(column_name separator ',') AS from_cols,
               referenced_table_name AS to_table, group_concat(referenced_column_name separator ',') AS to_cols
        FROM information_schema.key_column_usage
        WHERE referenced_table_name IS NOT NULL AND %s = ?
        GROUP BY table_name, referenced_table_name`

	// exported keys: table is the referenced (parent) side.
	exported, err := queryFkRows(ctx, db, fmt.Sprintf(q, "referenced_table_name"), t, false)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query exported keys", err)
	}
	// imported keys: table is the referencing (child) side.
	imported, err := queryFkRows(ctx, db, fmt.Sprintf(q, "table_name"), t, true)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query imported keys", err)
	}
	return dedupeSelfReferencing(exported, imported), nil
}

func init() {
	Register(dialect.MySQL, myProbe{})
}
