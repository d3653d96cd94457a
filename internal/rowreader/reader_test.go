package rowreader

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbexport/internal/cache"
	"dbexport/internal/model"
)

func newMockReader(t *testing.T) (*Reader, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "sqlmock")

	cols := cache.NewColumnCache(4)
	cols.Put("author", cache.NewOrderedColumns([]model.ColumnMetadata{
		{Name: "id", TypeName: "INT", OrdinalPosition: 1},
		{Name: "name", TypeName: "TEXT", OrdinalPosition: 2},
	}))

	r := NewReader(db, cols, sq.Question)
	return r, mock, func() { db.Close() }
}

func TestSelectByColumnMaterializesRecords(t *testing.T) {
	r, mock, closeFn := newMockReader(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada")
	mock.ExpectQuery("SELECT \\* FROM author WHERE id = \\?").WithArgs(int64(1)).WillReturnRows(rows)

	oc, ok := r.Columns.Get("author")
	require.True(t, ok)

	recs, err := r.SelectByColumn(context.Background(), "author", "id", int64(1), oc)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ada", recs[0].Cell("name").Value)
}

func TestResolvePKPromotesAndNormalizes(t *testing.T) {
	rec := &model.Record{Cells: []*model.Cell{{Name: "id", Value: int32(7)}}}
	link, ok := ResolvePK(rec, "author", "id")
	require.True(t, ok)
	assert.Equal(t, int64(7), link.PK)
	assert.Equal(t, link, rec.RowLink)
}

func TestResolvePKMissingCell(t *testing.T) {
	rec := &model.Record{}
	_, ok := ResolvePK(rec, "author", "id")
	assert.False(t, ok)
}
