//go:build oracle
// +build oracle

package connector

import (
	_ "github.com/godror/godror"
)
