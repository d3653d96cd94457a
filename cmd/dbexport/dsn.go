package main

import (
	"fmt"
	"net/url"
	"strings"

	"dbexport/internal/dialect"
)

// buildDSN folds a separately-supplied login/password into a connection
// URL, mirroring the source CLI's three-argument
// DriverManager.getConnection(url, user, password) shape on top of Go's
// single-DSN-string driver API. If rawURL already carries credentials (an
// "@" before the host), it is used as-is.
func buildDSN(d dialect.Name, rawURL, login, password string) string {
	if login == "" || strings.Contains(rawURL, "@") {
		return rawURL
	}

	switch d {
	case dialect.Postgres, dialect.SQLServer:
		if u, err := url.Parse(rawURL); err == nil {
			u.User = url.UserPassword(login, password)
			return u.String()
		}
		return rawURL
	case dialect.MySQL:
		if idx := strings.Index(rawURL, "tcp("); idx >= 0 {
			return rawURL[:idx] + login + ":" + password + "@" + rawURL[idx:]
		}
		return fmt.Sprintf("%s:%s@%s", login, password, rawURL)
	case dialect.Oracle:
		return fmt.Sprintf("%s/%s@%s", login, password, rawURL)
	default:
		return rawURL
	}
}
