// Package canon implements the Canonicalizer (spec.md §4.7): it renumbers
// every single-numeric-PK row in an already-assembled record tree to a
// deterministic sequence derived from a content hash of its payload, so
// that two exports of semantically identical data produce byte-identical
// JSON regardless of the databases' original surrogate key sequences.
package canon

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/jmoiron/sqlx"

	"dbexport/internal/cache"
	"dbexport/internal/model"
	"dbexport/internal/schema"
)

// Canonicalizer renumbers surrogate PKs in a record tree. It reuses the FK
// and PK caches populated during traversal to avoid reprobing the schema.
type Canonicalizer struct {
	DB    *sqlx.DB
	Probe schema.Probe
	Fks   *cache.FkCache
	Pks   *cache.PkCache
}

// New builds a Canonicalizer. fks/pks may be nil, in which case
// default-capacity caches are created.
func New(db *sqlx.DB, probe schema.Probe, fks *cache.FkCache, pks *cache.PkCache) *Canonicalizer {
	if fks == nil {
		fks = cache.NewFkCache(cache.DefaultCapacity)
	}
	if pks == nil {
		pks = cache.NewPkCache(cache.DefaultCapacity)
	}
	return &Canonicalizer{DB: db, Probe: probe, Fks: fks, Pks: pks}
}

// Canonicalize renumbers root's tree in place and returns it. Running it
// twice on the same tree is a fixed point: the second pass computes the
// same hashes from the now-renumbered payloads and reassigns the same
// sequence, since hash inputs exclude the PK cell itself.
func (c *Canonicalizer) Canonicalize(ctx context.Context, root *model.Record) (*model.Record, error) {
	st := &canonState{
		c:        c,
		ctx:      ctx,
		hashes:   map[model.RowLinkKey]uint64{},
		pkColumn: map[string]string{},
		renumber: map[string]bool{},
	}

	if err := st.computeHash(root); err != nil {
		return nil, err
	}

	byTable := map[string][]model.RowLinkKey{}
	for key := range st.hashes {
		if st.renumber[key.Table] {
			byTable[key.Table] = append(byTable[key.Table], key)
		}
	}

	newPK := map[model.RowLinkKey]int64{}
	for _, keys := range byTable {
		sort.Slice(keys, func(i, j int) bool {
			hi, hj := st.hashes[keys[i]], st.hashes[keys[j]]
			if hi != hj {
				return hi < hj
			}
			return keys[i].PK < keys[j].PK
		})
		for i, key := range keys {
			newPK[key] = int64(i + 1)
		}
	}

	if err := st.rewrite(root, newPK); err != nil {
		return nil, err
	}
	return root, nil
}

type canonState struct {
	c   *Canonicalizer
	ctx context.Context

	hashes   map[model.RowLinkKey]uint64
	pkColumn map[string]string
	renumber map[string]bool
}

// computeHash walks the tree post-order: a row's hash incorporates its own
// non-PK cells plus the already-computed hashes of every child it drove,
// so identical subtrees hash identically regardless of original surrogate
// IDs.
func (st *canonState) computeHash(rec *model.Record) error {
	key := rec.RowLink.Key()
	if _, ok := st.hashes[key]; ok {
		return nil
	}

	table := model.Lower(rec.Table)
	pkCol, renumerable, err := st.pkColumnFor(table)
	if err != nil {
		return err
	}
	if renumerable {
		if cell := rec.Cell(pkCol); cell == nil {
			renumerable = false
		} else if _, ok := model.NormalizePK(cell.Value).(int64); !ok {
			renumerable = false
		}
	}
	st.renumber[table] = st.renumber[table] || renumerable
	if !renumerable {
		// Still assign a stable placeholder hash (0) so downstream
		// lookups don't miss; this table's rows are never reordered.
		st.hashes[key] = 0
	}

	fks, err := st.fksFor(table)
	if err != nil {
		return err
	}
	fkColumns := map[string]bool{}
	for _, fk := range fks {
		if fk.Inverted {
			fkColumns[model.Lower(fk.FKColumn)] = true
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "table:%s\n", table)

	for _, cell := range rec.Cells {
		name := model.Lower(cell.Name)
		isPK := pkCol != "" && name == model.Lower(pkCol)

		// An FK column's raw surrogate value, like the PK's, differs across
		// databases that hold identical data with different key sequences;
		// identity on both sides of an edge is carried by the referenced
		// row's own content hash instead (the "child:" lines below), so the
		// raw value is excluded here. The PK/FK cell's SubRows (its driven
		// children, attached in either traversal direction) still
		// contribute below regardless.
		switch {
		case isPK:
		case fkColumns[name] && cell.Value != nil && len(cell.SubRows) > 0:
		case fkColumns[name] && cell.Value == nil:
			fmt.Fprintf(&buf, "cell:%s=NULL\n", name)
		case fkColumns[name]:
			fmt.Fprintf(&buf, "cell:%s=dangling\n", name)
		default:
			fmt.Fprintf(&buf, "cell:%s=%v\n", name, cell.Value)
		}

		childTables := make([]string, 0, len(cell.SubRows))
		for t := range cell.SubRows {
			childTables = append(childTables, t)
		}
		sort.Strings(childTables)
		for _, t := range childTables {
			for i, child := range cell.SubRows[t] {
				if err := st.computeHash(child); err != nil {
					return err
				}
				fmt.Fprintf(&buf, "child:%s[%d]=%d\n", t, i, st.hashes[child.RowLink.Key()])
			}
		}
	}

	if renumerable {
		st.hashes[key] = xxhash.Sum64(buf.Bytes())
	}
	return nil
}

// rewrite walks the tree applying newPK: a row's own PK cell is rewritten
// if its table was renumbered, and every FK cell pointing at a renumbered
// row is rewritten to the new value.
func (st *canonState) rewrite(rec *model.Record, newPK map[model.RowLinkKey]int64) error {
	table := model.Lower(rec.Table)
	key := rec.RowLink.Key()

	pkCol := st.pkColumn[table]
	if np, ok := newPK[key]; ok {
		if cell := rec.Cell(pkCol); cell != nil {
			cell.Value = np
		}
		rec.RowLink.PK = np
	}

	fks, err := st.fksFor(table)
	if err != nil {
		return err
	}
	for _, fk := range fks {
		if !fk.Inverted {
			continue // only inverted edges hold an FK cell on this table
		}
		cell := rec.Cell(fk.FKColumn)
		if cell == nil || cell.Value == nil {
			continue
		}
		refKey := model.NewRowLink(fk.PKTable, cell.Value).Key()
		if np, ok := newPK[refKey]; ok {
			cell.Value = np
		}
	}

	for _, cell := range rec.Cells {
		for _, rows := range cell.SubRows {
			for _, child := range rows {
				if err := st.rewrite(child, newPK); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// pkColumnFor resolves table's single PK column, caching the renumerable
// verdict: a table qualifies only when it has exactly one PK column (spec.md
// §4.7: "rows whose PK is non-numeric or composite are left unchanged").
// Numeric-ness is checked per-row in computeHash via the cell value's
// normalized type, but a table with a composite key never
// qualifies regardless of value type.
func (st *canonState) pkColumnFor(table string) (col string, renumerable bool, err error) {
	if col, ok := st.pkColumn[table]; ok {
		return col, col != "", nil
	}
	pks, ok := st.c.Pks.Get(table)
	if !ok {
		pks, err = st.c.Probe.PrimaryKeys(st.ctx, st.c.DB, table)
		if err != nil {
			return "", false, err
		}
		st.c.Pks.Put(table, pks)
	}
	if len(pks) != 1 {
		st.pkColumn[table] = ""
		return "", false, nil
	}
	st.pkColumn[table] = pks[0]
	return pks[0], true, nil
}

func (st *canonState) fksFor(table string) ([]model.Fk, error) {
	if fks, ok := st.c.Fks.Get(table); ok {
		return fks, nil
	}
	fks, err := st.c.Probe.ForeignKeysOf(st.ctx, st.c.DB, table)
	if err != nil {
		return nil, err
	}
	st.c.Fks.Put(table, fks)
	return fks, nil
}
