package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

// mssqlProbe implements Probe for Microsoft SQL Server, adapted from the
// teacher's sys.* catalog extractor.
type mssqlProbe struct{}

func (mssqlProbe) AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error {
	t := dialect.AdaptTableCase(dialect.SQLServer, table)
	var n int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM sys.tables WHERE name = @p1`, t).Scan(&n)
	if err != nil {
		return dberrors.ForTable(dberrors.MetadataError, table, "query table existence", err)
	}
	if n == 0 {
		return dberrors.ForTable(dberrors.TableNotFound, table, "table not found", nil)
	}
	return nil
}

func (mssqlProbe) ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error) {
	t := dialect.AdaptTableCase(dialect.SQLServer, table)
	rows, err := db.QueryContext(ctx, `
        SELECT COLUMN_NAME, DATA_TYPE, ORDINAL_POSITION,
               coalesce(COLUMN_DEFAULT, ''), coalesce(CHARACTER_MAXIMUM_LENGTH, 0)
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_NAME = @p1
        ORDER BY ORDINAL_POSITION`, t)
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

func (mssqlProbe) PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	t := dialect.AdaptTableCase(dialect.SQLServer, table)
	rows, err := db.QueryContext(ctx, `
        SELECT k.COLUMN_NAME
        FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS t
        JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
          ON t.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND t.TABLE_SCHEMA = k.TABLE_SCHEMA
        WHERE t.CONSTRAINT_TYPE = 'PRIMARY KEY' AND k.TABLE_NAME = @p1
        ORDER BY k.ORDINAL_POSITION`, t)
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

func (mssqlProbe) ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	t := dialect.AdaptTableCase(dialect.SQLServer, table)

	exported, err := mssqlFkQuery(ctx, db, t, false)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query exported keys", err)
	}
	imported, err := mssqlFkQuery(ctx, db, t, true)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query imported keys", err)
	}
	return dedupeSelfReferencing(exported, imported), nil
}

func mssqlFkQuery(ctx context.Context, db *sqlx.DB, table string, inverted bool) ([]model.Fk, error) {
	// exported keys (inverted=false): table is the referenced (parent) side.
	// imported keys (inverted=true): table is the referencing (child) side.
	objectFilter := "OBJECT_NAME(fkc.referenced_object_id)"
	if inverted {
		objectFilter = "OBJECT_NAME(fkc.parent_object_id)"
	}
	rows, err := db.QueryContext(ctx, `
        SELECT
            OBJECT_NAME(fkc.parent_object_id) AS from_table,
            STRING_AGG(c.NAME, ',') AS from_cols,
            OBJECT_NAME(fkc.referenced_object_id) AS to_table,
            STRING_AGG(rc.NAME, ',') AS to_cols
        FROM sys.foreign_keys fk
        JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
        JOIN sys.columns c ON fkc.parent_object_id = c.object_id AND fkc.parent_column_id = c.column_id
        JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
        WHERE `+objectFilter+` = @p1
        GROUP BY fk.name, fkc.parent_object_id, fkc.referenced_object_id`, table)
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

func init() {
	Register(dialect.SQLServer, mssqlProbe{})
}
