package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbexport/internal/dberrors"
	"dbexport/internal/model"
)

func TestCoerceNullLiterals(t *testing.T) {
	meta := model.ColumnMetadata{TypeName: "INTEGER"}
	for _, raw := range []string{"", "   ", "null", "NULL"} {
		b, err := Coerce(raw, meta)
		require.NoError(t, err)
		assert.True(t, b.IsNull)
		assert.Equal(t, "NUMERIC", b.NullTypeCode)
	}
}

func TestCoerceBoolean(t *testing.T) {
	b, err := Coerce("true", model.ColumnMetadata{TypeName: "BOOLEAN"})
	require.NoError(t, err)
	assert.Equal(t, true, b.Value)
}

func TestCoerceInteger(t *testing.T) {
	for _, typ := range []string{"INT", "INT2", "INT4", "INT8", "SERIAL", "NUMBER", "FLOAT4", "FLOAT8"} {
		b, err := Coerce("42", model.ColumnMetadata{TypeName: typ})
		require.NoError(t, err, typ)
		assert.Equal(t, int64(42), b.Value, typ)
	}
}

func TestCoerceDecimal(t *testing.T) {
	b, err := Coerce("3.14", model.ColumnMetadata{TypeName: "NUMERIC"})
	require.NoError(t, err)
	assert.Equal(t, 3.14, b.Value)
}

func TestCoerceDate(t *testing.T) {
	b, err := Coerce("2024-01-02", model.ColumnMetadata{TypeName: "DATE"})
	require.NoError(t, err)
	tm, ok := b.Value.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, tm.Year())
}

func TestCoerceTimestampReplacesSpace(t *testing.T) {
	b, err := Coerce("2024-01-02 03:04:05", model.ColumnMetadata{TypeName: "TIMESTAMP"})
	require.NoError(t, err)
	tm, ok := b.Value.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 3, tm.Hour())
}

func TestCoerceOtherWithMetadataCarriesTypeHint(t *testing.T) {
	b, err := Coerce("hello", model.ColumnMetadata{TypeName: "JSONB"})
	require.NoError(t, err)
	assert.Equal(t, "hello", b.Value)
	assert.Equal(t, "JSONB", b.NullTypeCode)
}

func TestCoerceOtherArrayHasNoTypeHint(t *testing.T) {
	b, err := Coerce("{1,2}", model.ColumnMetadata{TypeName: "INTEGER ARRAY"})
	require.NoError(t, err)
	assert.Equal(t, "", b.NullTypeCode)
}

func TestCoerceInvalidIntegerIsCoercionError(t *testing.T) {
	_, err := Coerce("not-a-number", model.ColumnMetadata{Name: "age", TypeName: "INT"})
	require.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.CoercionError))
}
