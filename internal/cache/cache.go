// Package cache implements the size-bounded, concurrency-safe metadata
// caches of spec.md §4.2: one each for foreign keys, primary keys, and
// column metadata, all fronting internal/schema probes.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"dbexport/internal/model"
)

// DefaultCapacity is spec.md §4.2's default per-cache capacity.
const DefaultCapacity = 10_000

// FkCache caches a table's foreign-key edges.
type FkCache struct{ c *lru.Cache[string, []model.Fk] }

// NewFkCache builds an FkCache with the given capacity (DefaultCapacity if
// capacity <= 0).
func NewFkCache(capacity int) *FkCache {
	c, _ := lru.New[string, []model.Fk](normalizeCapacity(capacity))
	return &FkCache{c: c}
}

// Get returns the cached value for table, if present.
func (f *FkCache) Get(table string) ([]model.Fk, bool) {
	return f.c.Get(model.Lower(table))
}

// Put stores fks for table. Writes are idempotent: a concurrent miss racing
// to populate the same key just overwrites with an equivalent result.
func (f *FkCache) Put(table string, fks []model.Fk) {
	f.c.Add(model.Lower(table), fks)
}

// PkCache caches a table's ordered primary-key column list.
type PkCache struct{ c *lru.Cache[string, []string] }

func NewPkCache(capacity int) *PkCache {
	c, _ := lru.New[string, []string](normalizeCapacity(capacity))
	return &PkCache{c: c}
}

func (p *PkCache) Get(table string) ([]string, bool) {
	return p.c.Get(model.Lower(table))
}

func (p *PkCache) Put(table string, pks []string) {
	p.c.Add(model.Lower(table), pks)
}

// ColumnCache caches a table's ordered column-metadata map.
type ColumnCache struct {
	c *lru.Cache[string, *OrderedColumns]
}

func NewColumnCache(capacity int) *ColumnCache {
	c, _ := lru.New[string, *OrderedColumns](normalizeCapacity(capacity))
	return &ColumnCache{c: c}
}

func (cc *ColumnCache) Get(table string) (*OrderedColumns, bool) {
	return cc.c.Get(model.Lower(table))
}

func (cc *ColumnCache) Put(table string, cols *OrderedColumns) {
	cc.c.Add(model.Lower(table), cols)
}

// OrderedColumns is an order-preserving lowercased-name -> ColumnMetadata
// map, since spec.md §4.1 requires columnMetadata results ordered by
// OrdinalPosition.
type OrderedColumns struct {
	order []string
	byKey map[string]model.ColumnMetadata
}

// NewOrderedColumns builds an OrderedColumns from columns already sorted by
// OrdinalPosition.
func NewOrderedColumns(columns []model.ColumnMetadata) *OrderedColumns {
	oc := &OrderedColumns{byKey: make(map[string]model.ColumnMetadata, len(columns))}
	for _, col := range columns {
		key := model.Lower(col.Name)
		oc.order = append(oc.order, key)
		oc.byKey[key] = col
	}
	return oc
}

// Get looks up a column case-insensitively.
func (oc *OrderedColumns) Get(name string) (model.ColumnMetadata, bool) {
	col, ok := oc.byKey[model.Lower(name)]
	return col, ok
}

// InOrder returns columns in OrdinalPosition order.
func (oc *OrderedColumns) InOrder() []model.ColumnMetadata {
	out := make([]model.ColumnMetadata, 0, len(oc.order))
	for _, key := range oc.order {
		out = append(out, oc.byKey[key])
	}
	return out
}

func normalizeCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}
