// Package schema implements the Schema Probe (spec.md §4.1): per-dialect
// resolution of table existence, column metadata, primary keys, and
// foreign-key edges (both exported and imported) from a live connection.
package schema

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

// Probe is the per-dialect contract the Graph Walker (via the Metadata
// Cache) drives to discover schema on demand.
type Probe interface {
	// AssertTableExists succeeds iff at least one catalog row describes
	// table under this dialect's case-adapted name.
	AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error

	// ColumnMetadata returns columns ordered by OrdinalPosition.
	ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error)

	// PrimaryKeys returns primary-key column names in catalog-declared
	// order (composite-key safe; the walker itself only uses index 0).
	PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error)

	// ForeignKeysOf concatenates exported (inverted=false) and imported
	// (inverted=true) foreign keys touching table.
	ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error)
}

var probes = map[dialect.Name]Probe{}

// Register makes a Probe available under a dialect name. Dialect probe
// implementations call this from an init() func, mirroring the teacher's
// internal/db.Register pattern.
func Register(name dialect.Name, p Probe) {
	probes[name] = p
}

// Lookup returns the probe registered for name, or UnknownDialect.
func Lookup(name dialect.Name) (Probe, error) {
	p, ok := probes[name]
	if !ok {
		return nil, dberrors.New(dberrors.UnknownDialect, "no schema probe registered for "+string(name), nil)
	}
	return p, nil
}

// RegisteredDialects lists registered dialect names, for diagnostics.
func RegisteredDialects() []string {
	out := make([]string, 0, len(probes))
	for k := range probes {
		out = append(out, string(k))
	}
	return out
}

// splitCSV splits a comma-and-space separated column list as returned by
// string_agg/group_concat/listagg/STRING_AGG, used by the aggregate-based
// foreign-key queries (postgres, mysql, sqlserver, oracle) to split
// composite-key column lists; the sqlite probe reads PRAGMA rows instead.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// firstOrEmpty returns cols[0] if present; the walker and spec.md §4.5 only
// ever drive traversal off a single FK column, composite FKs notwithstanding
// (spec.md §9's documented limitation).
func firstOrEmpty(cols []string) string {
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}
