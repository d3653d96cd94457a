package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

// sqliteProbe implements Probe for SQLite via sqlite_master and PRAGMA
// introspection, adapted from the teacher's extractor.
type sqliteProbe struct{}

func (sqliteProbe) AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error {
	var n int
	err := db.QueryRowContext(ctx, `
        SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return dberrors.ForTable(dberrors.MetadataError, table, "query table existence", err)
	}
	if n == 0 {
		return dberrors.ForTable(dberrors.TableNotFound, table, "table not found", nil)
	}
	return nil
}

func (sqliteProbe) ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query columns", err)
	}
	defer rows.Close()

	var out []model.ColumnMetadata
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, dberrors.ForTable(dberrors.MetadataError, table, "scan column", err)
		}
		out = append(out, model.ColumnMetadata{
			Name:            name,
			TypeName:        ctype,
			OrdinalPosition: cid + 1,
			DefaultExpr:     dflt.String,
		})
	}
	return out, rows.Err()
}

func (sqliteProbe) PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query primary key", err)
	}
	defer rows.Close()

	type pkCol struct {
		name string
		seq  int
	}
	var cols []pkCol
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, dberrors.ForTable(dberrors.MetadataError, table, "scan primary key", err)
		}
		if pk > 0 {
			cols = append(cols, pkCol{name: name, seq: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// PRAGMA table_info's pk column is the 1-based position within the
	// primary key, already giving composite-key order; a single-column
	// integer PK always reports pk=1.
	out := make([]string, len(cols))
	for _, c := range cols {
		if c.seq-1 < len(out) {
			out[c.seq-1] = c.name
		}
	}
	return out, nil
}

func (sqliteProbe) ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	exported, err := sqliteExportedFks(ctx, db, table)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query exported keys", err)
	}
	imported, err := sqliteImportedFks(ctx, db, table)
	if err != nil {
		return nil, dberrors.ForTable(dberrors.MetadataError, table, "query imported keys", err)
	}
	return dedupeSelfReferencing(exported, imported), nil
}

// sqliteExportedFks scans every other table's PRAGMA foreign_key_list for
// edges referencing table: edges where table is the referenced (parent)
// side.
func sqliteExportedFks(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	tableRows, err := db.QueryContext(ctx, `
        SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	var tables []string
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			tableRows.Close()
			return nil, err
		}
		tables = append(tables, name)
	}
	tableRows.Close()
	if err := tableRows.Err(); err != nil {
		return nil, err
	}

	var out []model.Fk
	for _, other := range tables {
		rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%q)`, other))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id, seq int
			var refTable, from, to, onUpdate, onDelete, match string
			if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
				rows.Close()
				return nil, err
			}
			if seq == 0 && refTable == table {
				out = append(out, model.Fk{FKTable: other, FKColumn: from, PKTable: refTable, PKColumn: to, Inverted: false})
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sqliteImportedFks reads table's own PRAGMA foreign_key_list: edges where
// table is the referencing (child) side.
func sqliteImportedFks(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Fk
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		if seq == 0 {
			out = append(out, model.Fk{FKTable: table, FKColumn: from, PKTable: refTable, PKColumn: to, Inverted: true})
		}
	}
	return out, rows.Err()
}

func init() {
	Register(dialect.SQLite, sqliteProbe{})
}
