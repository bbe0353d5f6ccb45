// Package sqlitecheck is component L's SQLite backend, dual-registered
// against both the cgo and pure-Go drivers the teacher itself coexists
// with: database/sqlite3/database.go opens "sqlite" (modernc.org/sqlite,
// pure Go), while adapter/sqlite3 opens "sqlite3" (github.com/mattn/go-sqlite3,
// cgo). This package keeps both import-registered and lets the caller pick.
package sqlitecheck

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/qlcompiler/qlc/internal/schemaverify/livecolumn"
	"github.com/qlcompiler/qlc/internal/semtype"
)

type Checker struct {
	db *sql.DB
}

// Open opens a SQLite database file at dsn. useCGO selects mattn/go-sqlite3
// ("sqlite3://" connection strings); otherwise modernc.org/sqlite is used
// ("sqlite://"), matching the two driver names the teacher itself
// registers under.
func Open(dsn string, useCGO bool) (*Checker, error) {
	driverName := "sqlite"
	if useCGO {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &Checker{db: db}, nil
}

func (c *Checker) Close() error { return c.db.Close() }

// ColumnTypes reads table's columns via PRAGMA table_info, SQLite's own
// column-introspection surface (SQLite has no information_schema).
func (c *Checker) ColumnTypes(ctx context.Context, table string) (map[string]livecolumn.ColumnType, error) {
	rows, err := c.db.QueryContext(ctx, `PRAGMA table_info(`+quoteIdent(table)+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]livecolumn.ColumnType)
	for rows.Next() {
		var cid int
		var name, declType string
		var notNull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out[name] = livecolumn.ColumnType{Name: name, SemTag: classify(declType)}
	}
	return out, rows.Err()
}

// quoteIdent wraps an identifier in double quotes for interpolation into a
// PRAGMA statement, which (unlike an ordinary query) cannot bind its table
// name as a parameter.
func quoteIdent(ident string) string {
	return `"` + ident + `"`
}

func classify(declType string) semtype.Tag {
	switch declType {
	case "BOOLEAN", "boolean":
		return semtype.Bool
	case "TEXT", "VARCHAR", "CHAR", "text", "varchar", "char":
		return semtype.String
	default:
		return semtype.Integer
	}
}
