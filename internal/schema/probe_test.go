package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/model"
)

func TestLookupKnownDialect(t *testing.T) {
	p, err := Lookup(dialect.Postgres)
	assert.NoError(t, err)
	assert.NotNil(t, p)
}

func TestLookupUnknownDialect(t *testing.T) {
	_, err := Lookup(dialect.Name("unknown"))
	assert.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.UnknownDialect))
}

func TestRegisteredDialectsIncludesCore(t *testing.T) {
	names := RegisteredDialects()
	assert.Contains(t, names, string(dialect.Postgres))
	assert.Contains(t, names, string(dialect.MySQL))
	assert.Contains(t, names, string(dialect.SQLite))
	assert.Contains(t, names, string(dialect.SQLServer))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b"))
	assert.Nil(t, splitCSV(""))
}

func TestFirstOrEmpty(t *testing.T) {
	assert.Equal(t, "a", firstOrEmpty([]string{"a", "b"}))
	assert.Equal(t, "", firstOrEmpty(nil))
}

func TestDedupeSelfReferencingDropsDuplicatePhysicalConstraint(t *testing.T) {
	exported := []model.Fk{{PKTable: "node", PKColumn: "id", FKTable: "node", FKColumn: "parent_id"}}
	imported := []model.Fk{{PKTable: "node", PKColumn: "id", FKTable: "node", FKColumn: "parent_id", Inverted: true}}

	out := dedupeSelfReferencing(exported, imported)
	assert.Len(t, out, 1)
}

func TestDedupeSelfReferencingKeepsDistinctConstraints(t *testing.T) {
	exported := []model.Fk{{PKTable: "author", PKColumn: "id", FKTable: "blogpost", FKColumn: "author_id"}}
	imported := []model.Fk{{PKTable: "blogpost", PKColumn: "id", FKTable: "comment", FKColumn: "post_id", Inverted: true}}

	out := dedupeSelfReferencing(exported, imported)
	assert.Len(t, out, 2)
}
