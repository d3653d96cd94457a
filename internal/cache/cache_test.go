package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbexport/internal/model"
)

func TestFkCacheRoundTripCaseInsensitive(t *testing.T) {
	c := NewFkCache(4)
	fks := []model.Fk{{PKTable: "author", PKColumn: "id", FKTable: "blogpost", FKColumn: "author_id"}}
	c.Put("BlogPost", fks)

	got, ok := c.Get("blogpost")
	require.True(t, ok)
	assert.Equal(t, fks, got)
}

func TestFkCacheMissReturnsFalse(t *testing.T) {
	c := NewFkCache(4)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestFkCacheEvictsByCapacity(t *testing.T) {
	c := NewFkCache(1)
	c.Put("a", []model.Fk{{PKTable: "a"}})
	c.Put("b", []model.Fk{{PKTable: "b"}})

	_, aPresent := c.Get("a")
	_, bPresent := c.Get("b")
	assert.False(t, aPresent)
	assert.True(t, bPresent)
}

func TestPkCacheRoundTrip(t *testing.T) {
	c := NewPkCache(4)
	c.Put("author", []string{"id"})
	got, ok := c.Get("AUTHOR")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, got)
}

func TestOrderedColumnsPreservesOrdinalOrder(t *testing.T) {
	oc := NewOrderedColumns([]model.ColumnMetadata{
		{Name: "id", OrdinalPosition: 1},
		{Name: "name", OrdinalPosition: 2},
	})
	ordered := oc.InOrder()
	require.Len(t, ordered, 2)
	assert.Equal(t, "id", ordered[0].Name)
	assert.Equal(t, "name", ordered[1].Name)

	col, ok := oc.Get("NAME")
	require.True(t, ok)
	assert.Equal(t, 2, col.OrdinalPosition)
}

func TestColumnCacheDefaultCapacity(t *testing.T) {
	cc := NewColumnCache(0)
	cc.Put("t", NewOrderedColumns(nil))
	_, ok := cc.Get("t")
	assert.True(t, ok)
}
