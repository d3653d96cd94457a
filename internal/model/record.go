// Package model holds the data types the exporter assembles a row graph
// into: columns, foreign-key edges, row identities and the nested Record
// tree itself.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Lower normalizes a table or column identifier the way the engine stores
// it internally: lowercased. Callers re-case per dialect only when issuing
// catalog queries; everything held in memory here is lowercase.
func Lower(name string) string {
	return strings.ToLower(name)
}

// ColumnMetadata describes one column as returned by a dialect's catalog.
type ColumnMetadata struct {
	Name            string
	TypeName        string
	JDBCTypeCode    int
	SourceTypeCode  string
	Size            int64
	DefaultExpr     string
	OrdinalPosition int // 1-based
}

// Fk is one foreign-key constraint, discovered from either the exported-keys
// or imported-keys side of the catalog.
type Fk struct {
	PKTable      string
	PKColumn     string
	FKTable      string
	FKColumn     string
	DeclaredType string
	Inverted     bool // true when discovered via the imported-keys catalog
}

// Equal compares two Fks ignoring Inverted: the same physical constraint is
// discovered once from each side and must deduplicate across the two sets.
func (f Fk) Equal(o Fk) bool {
	return strings.EqualFold(f.PKTable, o.PKTable) &&
		strings.EqualFold(f.PKColumn, o.PKColumn) &&
		strings.EqualFold(f.FKTable, o.FKTable) &&
		strings.EqualFold(f.FKColumn, o.FKColumn)
}

// RowLink identifies one row by table and normalized primary key. Any
// integral numeric PK is folded to int64 so that (T, 7) and (T, int64(7))
// and (T, "7") hash equal when the textual form round-trips to the same
// integer; everything else compares by its canonical string form.
type RowLink struct {
	Table string
	PK    any
}

// NewRowLink builds a RowLink, normalizing pk via NormalizePK.
func NewRowLink(table string, pk any) RowLink {
	return RowLink{Table: Lower(table), PK: NormalizePK(pk)}
}

// NormalizePK folds any integral numeric kind to int64; every other value is
// kept as-is. Applying NormalizePK twice is a no-op (idempotent).
func NormalizePK(pk any) any {
	switch v := pk.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	default:
		return v
	}
}

// Key returns the comparable map key for this RowLink: a (table, canonical
// string) pair, so RowLink itself need not be a valid Go map key for every
// underlying PK type (e.g. []byte).
func (r RowLink) Key() RowLinkKey {
	return RowLinkKey{Table: r.Table, PK: canonicalString(r.PK)}
}

// RowLinkKey is the map-safe projection of a RowLink, used as the visited
// set's key.
type RowLinkKey struct {
	Table string
	PK    string
}

func canonicalString(pk any) string {
	switch v := pk.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParseRowLink parses the short-form "table/pk" diagnostic encoding.
// Parsing is best-effort and deterministic: an integer-shaped tail becomes
// an int64 PK, anything else is kept as a string PK. Unlike the Java source
// this never falls through to an unconditional integer assignment after a
// failed parse.
func ParseRowLink(shortExpr string) (RowLink, bool) {
	idx := strings.LastIndex(shortExpr, "/")
	if idx < 0 {
		return RowLink{}, false
	}
	table := shortExpr[:idx]
	tail := shortExpr[idx+1:]
	if table == "" || tail == "" {
		return RowLink{}, false
	}
	if n, err := strconv.ParseInt(tail, 10, 64); err == nil {
		return NewRowLink(table, n), true
	}
	return NewRowLink(table, tail), true
}

// Cell is one column's value within a Record, plus the nested subrows this
// column's FK edge produced during traversal (if any).
type Cell struct {
	Name     string
	Value    any
	Metadata ColumnMetadata
	SubRows  map[string][]*Record // child table -> records, populated only on FK-driving cells
}

// AddSubRows appends records under childTable, creating the slice on first
// use. Called even with an empty rows slice so a dangling FK value (spec.md
// §9's "refers to a row that does not exist" case) still produces an empty,
// present list rather than a missing key.
func (c *Cell) AddSubRows(childTable string, rows []*Record) {
	if c.SubRows == nil {
		c.SubRows = make(map[string][]*Record)
	}
	key := Lower(childTable)
	c.SubRows[key] = append(c.SubRows[key], rows...)
}

// Record is one row, as an ordered list of cells plus the RowLink that
// identifies it.
type Record struct {
	Table   string
	RowLink RowLink
	Cells   []*Cell

	// Context holds the ExportContext for the root record of one export
	// call (spec.md §4.5 step 4: "attach ExportContext to the root
	// record's metadata under a reserved key"). Never set on non-root
	// records, never marshaled.
	Context *ExportContext
}

// Cell looks up a cell by name, case-insensitively, as spec.md §4.5(c)
// requires when locating the driving column.
func (r *Record) Cell(name string) *Cell {
	for _, c := range r.Cells {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// ExportContext is owned by one export call: it carries the visited-node set
// and the append-only log of foreign keys the walker considered.
type ExportContext struct {
	Visited    map[RowLinkKey]*Record
	TreatedFks []Fk
}

// NewExportContext returns an empty context ready for one export call.
func NewExportContext() *ExportContext {
	return &ExportContext{Visited: make(map[RowLinkKey]*Record)}
}

// MarkTreated appends fk to the diagnostic log; never used for pruning.
func (ec *ExportContext) MarkTreated(fk Fk) {
	ec.TreatedFks = append(ec.TreatedFks, fk)
}

// Visit records a row as seen and returns false if it was already present.
func (ec *ExportContext) Visit(link RowLink, rec *Record) (isNew bool) {
	key := link.Key()
	if _, ok := ec.Visited[key]; ok {
		return false
	}
	ec.Visited[key] = rec
	return true
}

// Seen reports whether link has already been visited in this export.
func (ec *ExportContext) Seen(link RowLink) bool {
	_, ok := ec.Visited[link.Key()]
	return ok
}
