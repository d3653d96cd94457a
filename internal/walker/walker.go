// Package walker implements the Graph Walker (spec.md §4.5), the core
// algorithm of the exporter: given a root (table, pk), it recursively
// extends the root record with subrows reachable along both directions of
// every foreign key, stopping at already-visited rows and optional
// stop-table filters.
package walker

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/cache"
	"dbexport/internal/dberrors"
	"dbexport/internal/model"
	"dbexport/internal/rowreader"
	"dbexport/internal/schema"
)

// Options configures one Export call's stop-table filters (spec.md §6's
// opts enumeration). Pre-populated metadata caches are passed to New, not
// carried here.
type Options struct {
	StopTablesIncluded []string
	StopTablesExcluded []string
}

// allowed applies spec.md §4.5's stop-table policy: excluded before
// included. When both lists are empty every table is reachable.
func (o Options) allowed(table string) bool {
	for _, t := range o.StopTablesExcluded {
		if strings.EqualFold(t, table) {
			return false
		}
	}
	if len(o.StopTablesIncluded) == 0 {
		return true
	}
	for _, t := range o.StopTablesIncluded {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

// Walker owns one database connection and the three metadata caches for the
// duration of one export call (spec.md §5: single-threaded, synchronous).
type Walker struct {
	DB     *sqlx.DB
	Probe  schema.Probe
	Reader *rowreader.Reader

	Fks     *cache.FkCache
	Pks     *cache.PkCache
	Columns *cache.ColumnCache
}

// New builds a Walker. Any of the three caches may be nil, in which case a
// default-capacity cache is created (spec.md §6's "optional injected
// caches").
func New(db *sqlx.DB, probe schema.Probe, reader *rowreader.Reader, fks *cache.FkCache, pks *cache.PkCache, columns *cache.ColumnCache) *Walker {
	if fks == nil {
		fks = cache.NewFkCache(cache.DefaultCapacity)
	}
	if pks == nil {
		pks = cache.NewPkCache(cache.DefaultCapacity)
	}
	if columns == nil {
		columns = cache.NewColumnCache(cache.DefaultCapacity)
	}
	return &Walker{DB: db, Probe: probe, Reader: reader, Fks: fks, Pks: pks, Columns: columns}
}

// Export is the public entry point: spec.md §4.5's
// export(conn, rootTable, rootPk, opts) → Record.
func (w *Walker) Export(ctx context.Context, rootTable string, rootPK any, opts Options) (*model.Record, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	table := model.Lower(rootTable)
	if err := w.Probe.AssertTableExists(ctx, w.DB, table); err != nil {
		return nil, err
	}

	pks, err := w.primaryKeysFor(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(pks) > 1 {
		// spec.md §9: a composite-keyed root is rejected rather than
		// silently mis-keyed off its first column; composite keys
		// encountered deeper in the traversal still use pks[0] (spec.md
		// §4.5's documented limitation).
		return nil, dberrors.ForTable(dberrors.PrimaryKeyMissing, table, "composite primary key not supported for root table", nil)
	}
	pkCol := pks[0]
	cols, err := w.columnsFor(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := w.Reader.SelectByColumn(ctx, table, pkCol, rootPK, cols)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, dberrors.ForColumn(dberrors.QueryError, table, pkCol, "root row not found", nil)
	}
	root := rows[0]
	link, ok := rowreader.ResolvePK(root, table, pkCol)
	if !ok {
		return nil, dberrors.ForColumn(dberrors.QueryError, table, pkCol, "root row's primary key is NULL", nil)
	}

	ec := model.NewExportContext()
	ec.Visit(link, root)

	if err := w.expand(ctx, ec, root, table, opts); err != nil {
		return nil, err
	}
	root.Context = ec
	return root, nil
}

// expand extends rec (a row of table) with subrows along every FK edge
// touching table, per spec.md §4.5 steps 3a-3h.
func (w *Walker) expand(ctx context.Context, ec *model.ExportContext, rec *model.Record, table string, opts Options) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	fks, err := w.fksFor(ctx, table)
	if err != nil {
		return err
	}

	for _, fk := range fks {
		ec.MarkTreated(fk)

		drivingCol := fk.PKColumn
		otherTable := fk.FKTable
		otherColumn := fk.FKColumn
		if fk.Inverted {
			drivingCol = fk.FKColumn
			otherTable = fk.PKTable
			otherColumn = fk.PKColumn
		}

		cell := rec.Cell(drivingCol)
		if cell == nil || cell.Value == nil {
			continue
		}

		otherTable = model.Lower(otherTable)
		if !opts.allowed(otherTable) {
			continue
		}

		drivingValue := cell.Value
		if ec.Seen(model.NewRowLink(otherTable, drivingValue)) {
			continue
		}

		otherCols, err := w.columnsFor(ctx, otherTable)
		if err != nil {
			return err
		}
		children, err := w.Reader.SelectByColumn(ctx, otherTable, otherColumn, drivingValue, otherCols)
		if err != nil {
			return err
		}

		otherPKCol, err := w.primaryKeyFor(ctx, otherTable)
		if err != nil {
			return err
		}

		for _, child := range children {
			childLink, ok := rowreader.ResolvePK(child, otherTable, otherPKCol)
			if !ok {
				continue
			}
			isNew := ec.Visit(childLink, child)
			if isNew {
				if err := w.expand(ctx, ec, child, otherTable, opts); err != nil {
					return err
				}
			}
		}

		cell.AddSubRows(otherTable, children)
	}
	return nil
}

// primaryKeysFor returns table's full primary-key column list, cached.
func (w *Walker) primaryKeysFor(ctx context.Context, table string) ([]string, error) {
	if pks, ok := w.Pks.Get(table); ok {
		if len(pks) == 0 {
			return nil, dberrors.ForTable(dberrors.PrimaryKeyMissing, table, "table has no primary key", nil)
		}
		return pks, nil
	}
	pks, err := w.Probe.PrimaryKeys(ctx, w.DB, table)
	if err != nil {
		return nil, err
	}
	w.Pks.Put(table, pks)
	if len(pks) == 0 {
		return nil, dberrors.ForTable(dberrors.PrimaryKeyMissing, table, "table has no primary key", nil)
	}
	return pks, nil
}

// primaryKeyFor returns table's first primary-key column, per spec.md
// §4.5's documented limitation for non-root tables encountered mid-traversal.
func (w *Walker) primaryKeyFor(ctx context.Context, table string) (string, error) {
	pks, err := w.primaryKeysFor(ctx, table)
	if err != nil {
		return "", err
	}
	return pks[0], nil
}

func (w *Walker) columnsFor(ctx context.Context, table string) (*cache.OrderedColumns, error) {
	if cols, ok := w.Columns.Get(table); ok {
		return cols, nil
	}
	meta, err := w.Probe.ColumnMetadata(ctx, w.DB, table)
	if err != nil {
		return nil, err
	}
	cols := cache.NewOrderedColumns(meta)
	w.Columns.Put(table, cols)
	return cols, nil
}

func (w *Walker) fksFor(ctx context.Context, table string) ([]model.Fk, error) {
	if fks, ok := w.Fks.Get(table); ok {
		return fks, nil
	}
	fks, err := w.Probe.ForeignKeysOf(ctx, w.DB, table)
	if err != nil {
		return nil, err
	}
	w.Fks.Put(table, fks)
	return fks, nil
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dberrors.New(dberrors.Cancelled, "export cancelled", err)
	}
	return nil
}
