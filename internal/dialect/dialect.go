// Package dialect holds the small per-dialect facts the Schema Probe needs:
// the canonical dialect name and the identifier case-adaptation rule catalog
// queries must use (spec.md §4.1).
package dialect

import "strings"

// Name is a canonical dialect key, as registered with internal/connector
// and internal/schema.
type Name string

const (
	Postgres  Name = "postgres"
	MySQL     Name = "mysql"
	SQLServer Name = "sqlserver"
	SQLite    Name = "sqlite"
	Oracle    Name = "oracle"
	H2        Name = "h2"
)

// Normalize maps common aliases to a canonical dialect key, mirroring the
// teacher's config.NormalizeDriver.
func Normalize(d string) Name {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	case "mssql", "sqlserver":
		return SQLServer
	case "sqlite", "sqlite3":
		return SQLite
	case "godror", "oracle":
		return Oracle
	case "h2":
		return H2
	default:
		return Name(strings.ToLower(d))
	}
}

// AdaptTableCase re-cases a table name before it is used in a catalog query,
// per spec.md §4.1: PostgreSQL lowercases, H2 uppercases, MySQL is left
// unchanged, and any other dialect uppercases by default.
func AdaptTableCase(d Name, table string) string {
	switch d {
	case Postgres:
		return strings.ToLower(table)
	case H2:
		return strings.ToUpper(table)
	case MySQL:
		return table
	default:
		return strings.ToUpper(table)
	}
}
