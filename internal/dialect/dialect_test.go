package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAliases(t *testing.T) {
	cases := map[string]Name{
		"postgresql": Postgres,
		"pg":         Postgres,
		"mariadb":    MySQL,
		"mssql":      SQLServer,
		"sqlite3":    SQLite,
		"godror":     Oracle,
		"H2":         H2,
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestAdaptTableCase(t *testing.T) {
	assert.Equal(t, "blogpost", AdaptTableCase(Postgres, "BlogPost"))
	assert.Equal(t, "BLOGPOST", AdaptTableCase(H2, "blogpost"))
	assert.Equal(t, "BlogPost", AdaptTableCase(MySQL, "BlogPost"))
	assert.Equal(t, "BLOGPOST", AdaptTableCase(SQLServer, "blogpost"))
	assert.Equal(t, "BLOGPOST", AdaptTableCase(Oracle, "blogpost"))
}
