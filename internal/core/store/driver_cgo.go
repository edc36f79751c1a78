//go:build cgo

package store

import (
	// Register the libsql database/sql driver. The driver is cgo-only, so
	// the import lives behind the cgo build tag.
	_ "github.com/tursodatabase/go-libsql"
)
