package order

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbexport/internal/dberrors"
	"dbexport/internal/model"
)

type fakeProbe struct {
	fks map[string][]model.Fk
}

func (p *fakeProbe) AssertTableExists(ctx context.Context, db *sqlx.DB, table string) error {
	return nil
}
func (p *fakeProbe) ColumnMetadata(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMetadata, error) {
	return nil, nil
}
func (p *fakeProbe) PrimaryKeys(ctx context.Context, db *sqlx.DB, table string) ([]string, error) {
	return nil, nil
}
func (p *fakeProbe) ForeignKeysOf(ctx context.Context, db *sqlx.DB, table string) ([]model.Fk, error) {
	return p.fks[table], nil
}

func indexOf(order []string, table string) int {
	for i, t := range order {
		if t == table {
			return i
		}
	}
	return -1
}

func TestDetermineInsertionOrderLinearChain(t *testing.T) {
	probe := &fakeProbe{fks: map[string][]model.Fk{
		"blogpost": {
			{PKTable: "author", PKColumn: "id", FKTable: "blogpost", FKColumn: "author_id", Inverted: true},
			{PKTable: "blogpost", PKColumn: "id", FKTable: "comment", FKColumn: "post_id", Inverted: false},
		},
		"author":  nil,
		"comment": nil,
	}}
	o := New(nil, probe, nil)

	res, err := o.DetermineInsertionOrder(context.Background(), "blogpost", true)
	require.NoError(t, err)
	assert.False(t, res.Cyclic)
	require.Len(t, res.Order, 3)

	assert.Less(t, indexOf(res.Order, "author"), indexOf(res.Order, "blogpost"))
	assert.Less(t, indexOf(res.Order, "blogpost"), indexOf(res.Order, "comment"))
}

func cyclicProbe() *fakeProbe {
	return &fakeProbe{fks: map[string][]model.Fk{
		"a": {{PKTable: "b", PKColumn: "id", FKTable: "a", FKColumn: "b_id", Inverted: true}},
		"b": {{PKTable: "a", PKColumn: "id", FKTable: "b", FKColumn: "a_id", Inverted: true}},
	}}
}

func TestDetermineInsertionOrderCyclicPermissive(t *testing.T) {
	o := New(nil, cyclicProbe(), nil)

	res, err := o.DetermineInsertionOrder(context.Background(), "a", false)
	require.NoError(t, err)
	assert.True(t, res.Cyclic)
	assert.ElementsMatch(t, []string{"a", "b"}, res.Remnant)
}

func TestDetermineInsertionOrderCyclicStrict(t *testing.T) {
	o := New(nil, cyclicProbe(), nil)

	_, err := o.DetermineInsertionOrder(context.Background(), "a", true)
	require.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.CyclicDependencies))
}

func TestOrdererSoundness(t *testing.T) {
	probe := &fakeProbe{fks: map[string][]model.Fk{
		"blogpost": {
			{PKTable: "author", PKColumn: "id", FKTable: "blogpost", FKColumn: "author_id", Inverted: true},
			{PKTable: "blogpost", PKColumn: "id", FKTable: "comment", FKColumn: "post_id", Inverted: false},
		},
		"author":  nil,
		"comment": nil,
	}}
	o := New(nil, probe, nil)

	res, err := o.DetermineInsertionOrder(context.Background(), "blogpost", true)
	require.NoError(t, err)

	// For every table T at index i, no table at index > i is a
	// prerequisite (parent) of T in the discovered graph.
	graph, err := o.discoverGraph(context.Background(), "blogpost")
	require.NoError(t, err)
	for i, table := range res.Order {
		for parent, children := range graph {
			if children[table] {
				assert.Less(t, indexOf(res.Order, parent), i+1)
			}
		}
	}
}
