package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
)

func TestConnectUnknownDialect(t *testing.T) {
	_, _, err := Connect(context.Background(), dialect.Name("nope"), "", time.Second)
	assert.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.UnknownDialect))
}

func TestConnectSQLiteInMemory(t *testing.T) {
	db, probe, err := Connect(context.Background(), dialect.SQLite, ":memory:", 5*time.Second)
	if err != nil {
		t.Skipf("sqlite driver unavailable in this environment: %v", err)
	}
	defer db.Close()
	assert.NotNil(t, probe)
}

func TestRegisteredDriversIncludesCore(t *testing.T) {
	names := RegisteredDrivers()
	assert.Contains(t, names, string(dialect.Postgres))
	assert.Contains(t, names, string(dialect.SQLite))
}
