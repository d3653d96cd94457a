//go:build oracle
// +build oracle

package schema

import (
	"context"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

// oracleProbe implements Probe for Oracle via all_tab_columns/all_constraints,
// adapted from the teacher's extractor. Built only with the "oracle" tag
// since it requires CGO-backed godror, same as upstream.
type oracleProbe struct{}

func (oracleProbe) AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error {
	t := dialect.AdaptTableCase(dialect.Oracle, table)
	var n int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM all_tables WHERE table_name = :1`, t).Scan(&n)
	if err != nil {
		return dberrors.ForTable(dberrors.MetadataError, table, "query table existence", err)
	}
	if n == 0 {
		return dberrors.ForTable(dberrors.TableNotFound, table, "table not found", nil)
	}
	return nil
}

func (oracleProbe) ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error) {
	t := dialect.AdaptTableCase(dialect.Oracle, table)
	rows, err := db.QueryContext(ctx, `
        SELECT column_name, data_type, column_id, data_default
        FROM all_tab_columns
        WHERE table_name = :1
        ORDER BY column_id`, t)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query columns", err)
	}
	defer rows.Close()

	var out []model.ColumnMetadata
	for rows.Next() {
		var col model.ColumnMetadata
		var dflt *string
		if err := rows.Scan(&col.Name, &col.TypeName, &col.OrdinalPosition, &dflt); err != nil {
			return nil, dberrors.ForTable(dberrors.MetadataError, table, "scan column", err)
		}
		if dflt != nil {
			col.DefaultExpr = *dflt
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func (oracleProbe) PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	t := dialect.AdaptTableCase(dialect.Oracle, table)
	rows, err := db.QueryContext(ctx, `
        SELECT acc.column_name
        FROM all_cons_columns acc
        JOIN all_constraints ac ON acc.owner = ac.owner AND acc.constraint_name = ac.constraint_name
        WHERE ac.constraint_type = 'P' AND acc.table_name = :1
        ORDER BY acc.position`, t)
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

func (oracleProbe) ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	t := dialect.AdaptTableCase(dialect.Oracle, table)

	exported, err := oracleFkQuery(ctx, db, t, false)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query exported keys", err)
	}
	imported, err := oracleFkQuery(ctx, db, t, true)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query imported keys", err)
	}
	return dedupeSelfReferencing(exported, imported), nil
}

func oracleFkQuery(ctx context.Context, db *sqlx.DB, table string, inverted bool) ([]model.Fk, error) {
	// exported keys (inverted=false): table is the referenced (parent) side.
	// imported keys (inverted=true): table is the referencing (child) side.
	filterCol := "rcc.table_name"
	if inverted {
		filterCol = "a.table_name"
	}
	rows, err := db.QueryContext(ctx, `
        SELECT a.table_name AS from_table,
               listagg(acc.column_name, ',') within group (order by acc.position) AS from_cols,
               rcc.table_name AS to_table,
               listagg(rcc.column_name, ',') within group (order by rcc.position) AS to_cols
        FROM all_constraints a
        JOIN all_cons_columns acc ON a.owner = acc.owner AND a.constraint_name = acc.constraint_name
        JOIN all_cons_columns rcc ON a.r_owner = rcc.owner AND a.r_constraint_name = rcc.constraint_name
         AND coalesce(acc.position, 0) = coalesce(rcc.position, 0)
        WHERE a.constraint_type = 'R' AND `+filterCol+` = :1
        GROUP BY a.table_name, rcc.table_name`, table)
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
	Register(dialect.Oracle, oracleProbe{})
}
