package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePKIdempotent(t *testing.T) {
	for _, v := range []any{int(7), int32(7), int64(7), uint(7), "7", "abc"} {
		once := NormalizePK(v)
		twice := NormalizePK(once)
		assert.Equal(t, once, twice, "NormalizePK(%v) not idempotent", v)
	}
}

func TestRowLinkKeyUnifiesIntegerKinds(t *testing.T) {
	a := NewRowLink("author", int(7))
	b := NewRowLink("author", int64(7))
	c := NewRowLink("AUTHOR", "7")
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), c.Key())
}

func TestParseRowLinkIntegerTail(t *testing.T) {
	link, ok := ParseRowLink("blogpost/2")
	require.True(t, ok)
	assert.Equal(t, "blogpost", link.Table)
	assert.Equal(t, int64(2), link.PK)
}

func TestParseRowLinkStringTail(t *testing.T) {
	link, ok := ParseRowLink("account/abc-123")
	require.True(t, ok)
	assert.Equal(t, "account", link.Table)
	assert.Equal(t, "abc-123", link.PK)
}

func TestParseRowLinkRejectsMalformed(t *testing.T) {
	for _, s := range []string{"noslash", "/pk", "table/"} {
		_, ok := ParseRowLink(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestFkEqualIgnoresInverted(t *testing.T) {
	a := Fk{PKTable: "author", PKColumn: "id", FKTable: "blogpost", FKColumn: "author_id", Inverted: false}
	b := a
	b.Inverted = true
	assert.True(t, a.Equal(b))
}

func TestExportContextVisitOnce(t *testing.T) {
	ec := NewExportContext()
	link := NewRowLink("author", 1)
	rec := &Record{Table: "author", RowLink: link}

	assert.True(t, ec.Visit(link, rec))
	assert.False(t, ec.Visit(link, rec))
	assert.True(t, ec.Seen(link))
	assert.Equal(t, 1, len(ec.Visited))
}

func TestCellCaseInsensitiveLookup(t *testing.T) {
	rec := &Record{Cells: []*Cell{{Name: "Author_Id", Value: 1}}}
	assert.NotNil(t, rec.Cell("author_id"))
	assert.NotNil(t, rec.Cell("AUTHOR_ID"))
	assert.Nil(t, rec.Cell("missing"))
}

func TestRecordMarshalJSONMergesSubRowsAcrossCells(t *testing.T) {
	author := &Record{Cells: []*Cell{{Name: "id", Value: int64(1)}}}
	rec := &Record{
		Cells: []*Cell{
			{Name: "id", Value: int64(2)},
			{Name: "author_id", Value: int64(1)},
		},
	}
	rec.Cells[1].AddSubRows("author", []*Record{author})

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, float64(2), decoded["id"])
	sub, ok := decoded["subRow"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, sub, "author")
}

func TestAddSubRowsKeepsEmptyListForDanglingFk(t *testing.T) {
	c := &Cell{Name: "author_id", Value: int64(99)}
	c.AddSubRows("author", nil)
	rows, ok := c.SubRows["author"]
	assert.True(t, ok)
	assert.Len(t, rows, 0)
}
