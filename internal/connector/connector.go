// Package connector is the driver-factory collaborator of spec.md §6: it
// turns a dialect name, DSN, and credentials into a live, pinged connection,
// generalizing the teacher's internal/db.ConnectAndExtract from "extract a
// whole schema" to "hand back a connection the Graph Walker drives itself."
package connector

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/schema"
)

// driverNames maps a canonical dialect to the database/sql driver name
// registered for it.
var driverNames = map[dialect.Name]string{
	dialect.Postgres:  "postgres",
	dialect.MySQL:     "mysql",
	dialect.SQLServer: "sqlserver",
	dialect.SQLite:    "sqlite",
	dialect.Oracle:    "godror",
}

// Connect opens a connection for the given dialect and DSN, pings it within
// timeout, and returns both the live *sqlx.DB and the registered Schema
// Probe. It fails with UnknownDialect if either the driver or a Schema
// Probe is not registered for d.
func Connect(ctx context.Context, d dialect.Name, dsn string, timeout time.Duration) (*sqlx.DB, schema.Probe, error) {
	driverName, ok := driverNames[d]
	if !ok {
		return nil, nil, dberrors.New(dberrors.UnknownDialect, "no driver registered for "+string(d), nil)
	}
	probe, err := schema.Lookup(d)
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, nil, dberrors.New(dberrors.MetadataError, "open connection", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		if pingCtx.Err() != nil {
			return nil, nil, dberrors.New(dberrors.Cancelled, "ping timed out", err)
		}
		return nil, nil, dberrors.New(dberrors.MetadataError, "ping connection", err)
	}
	return db, probe, nil
}

// RegisteredDrivers lists the dialect names in the driver-name table, for
// diagnostics (mirrors the teacher's RegisteredDialects). The list includes
// oracle even when the godror driver is not compiled in (it is imported
// only under the "oracle" build tag).
func RegisteredDrivers() []string {
	out := make([]string, 0, len(driverNames))
	for d := range driverNames {
		out = append(out, string(d))
	}
	return out
}

// WrapSQLDB is used by callers that already hold a *sql.DB (e.g. tests
// constructing one via sqlmock) and want a *sqlx.DB without reopening.
func WrapSQLDB(db *sql.DB, d dialect.Name) *sqlx.DB {
	driverName := driverNames[d]
	return sqlx.NewDb(db, driverName)
}
