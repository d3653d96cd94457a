// Package order implements the Dependency Orderer (spec.md §4.6): given a
// root table, discover every table reachable along FK edges and return an
// insertion order where each parent precedes its children, tolerating
// cycles unless the caller asks for strict mode.
package order

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"dbexport/internal/cache"
	"dbexport/internal/dberrors"
	"dbexport/internal/model"
	"dbexport/internal/schema"
)

// Orderer discovers the FK dependency graph reachable from a root table and
// produces a Kahn-style topological insertion order.
type Orderer struct {
	DB    *sqlx.DB
	Probe schema.Probe
	Fks   *cache.FkCache
}

// New builds an Orderer. fks may be nil, in which case a default-capacity
// cache is created.
func New(db *sqlx.DB, probe schema.Probe, fks *cache.FkCache) *Orderer {
	if fks == nil {
		fks = cache.NewFkCache(cache.DefaultCapacity)
	}
	return &Orderer{DB: db, Probe: probe, Fks: fks}
}

// Result is what DetermineInsertionOrder returns: the order computed so
// far, and whether a cycle was encountered among the remaining tables.
type Result struct {
	Order   []string
	Cyclic  bool
	Remnant []string // tables left out of Order because they're part of a cycle
}

// DetermineInsertionOrder performs a BFS over FK edges starting at
// rootTable, builds a parent→children dependency map ("parent must be
// inserted before each child"), then repeatedly peels off tables with no
// remaining parents (Kahn's algorithm). Table names are compared
// case-insensitively. If a round peels nothing and tables remain, the
// remainder is cyclic: the partial order is returned, and if failOnCycles
// is set the call also returns a CyclicDependencies error.
func (o *Orderer) DetermineInsertionOrder(ctx context.Context, rootTable string, failOnCycles bool) (Result, error) {
	root := model.Lower(rootTable)

	parentToChildren, err := o.discoverGraph(ctx, root)
	if err != nil {
		return Result{}, err
	}

	inDegree := map[string]int{}
	for parent, children := range parentToChildren {
		if _, ok := inDegree[parent]; !ok {
			inDegree[parent] = 0
		}
		for child := range children {
			inDegree[child]++
		}
	}

	queue := make([]string, 0, len(inDegree))
	for table, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, table)
		}
	}
	sortStrings(queue)

	var result []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		result = append(result, next)

		var freed []string
		for child := range parentToChildren[next] {
			inDegree[child]--
			if inDegree[child] == 0 {
				freed = append(freed, child)
			}
		}
		sortStrings(freed)
		queue = append(queue, freed...)
	}

	if len(result) == len(inDegree) {
		return Result{Order: result}, nil
	}

	remnant := make([]string, 0, len(inDegree)-len(result))
	placed := map[string]bool{}
	for _, t := range result {
		placed[t] = true
	}
	for t := range inDegree {
		if !placed[t] {
			remnant = append(remnant, t)
		}
	}
	sortStrings(remnant)

	res := Result{Order: result, Cyclic: true, Remnant: remnant}
	if failOnCycles {
		return res, dberrors.New(dberrors.CyclicDependencies, "cycle among tables: "+strings.Join(remnant, ", "), nil)
	}
	return res, nil
}

// discoverGraph BFS-walks FK edges from root, returning a parent→children
// adjacency map. A table with no outgoing or incoming edges still appears
// as a key with an empty child set, so it is placed in the order with no
// constraints.
func (o *Orderer) discoverGraph(ctx context.Context, root string) (map[string]map[string]bool, error) {
	graph := map[string]map[string]bool{}
	visited := map[string]bool{}
	queue := []string{root}

	for len(queue) > 0 {
		table := queue[0]
		queue = queue[1:]
		if visited[table] {
			continue
		}
		visited[table] = true
		if _, ok := graph[table]; !ok {
			graph[table] = map[string]bool{}
		}

		fks, err := o.fksFor(ctx, table)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			parent, child := fk.PKTable, fk.FKTable
			parent = model.Lower(parent)
			child = model.Lower(child)

			if _, ok := graph[parent]; !ok {
				graph[parent] = map[string]bool{}
			}
			if _, ok := graph[child]; !ok {
				graph[child] = map[string]bool{}
			}
			graph[parent][child] = true

			for _, t := range []string{parent, child} {
				if !visited[t] {
					queue = append(queue, t)
				}
			}
		}
	}
	return graph, nil
}

func (o *Orderer) fksFor(ctx context.Context, table string) ([]model.Fk, error) {
	if fks, ok := o.Fks.Get(table); ok {
		return fks, nil
	}
	fks, err := o.Probe.ForeignKeysOf(ctx, o.DB, table)
	if err != nil {
		return nil, err
	}
	o.Fks.Put(table, fks)
	return fks, nil
}

// sortStrings is a tiny insertion sort, used only to keep queue processing
// order deterministic across map iteration (spec.md §8's orderer-soundness
// property doesn't require a specific order among equally-ready tables, but
// determinism makes the tests reproducible).
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
