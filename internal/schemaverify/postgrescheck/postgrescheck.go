// Package postgrescheck is component L's PostgreSQL backend.
//
// Grounded on database/postgres/database.go's NewDatabase (sql.Open("postgres",
// dsn) against github.com/lib/pq, which natively accepts a postgres:// URL).
package postgrescheck

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/qlcompiler/qlc/internal/schemaverify/livecolumn"
	"github.com/qlcompiler/qlc/internal/semtype"
)

type Checker struct {
	db *sql.DB
}

// Open connects to a PostgreSQL server. lib/pq accepts a full postgres://
// URL directly, so dsn is handed to it with the scheme restored.
func Open(dsn string) (*Checker, error) {
	db, err := sql.Open("postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}
	return &Checker{db: db}, nil
}

func (c *Checker) Close() error { return c.db.Close() }

// ColumnTypes reads table's columns from information_schema.columns,
// restricted to the session's search_path schema the way database/postgres's
// own introspection queries do.
func (c *Checker) ColumnTypes(ctx context.Context, table string) (map[string]livecolumn.ColumnType, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]livecolumn.ColumnType)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		out[name] = livecolumn.ColumnType{Name: name, SemTag: classify(dataType)}
	}
	return out, rows.Err()
}

func classify(pgType string) semtype.Tag {
	switch pgType {
	case "boolean":
		return semtype.Bool
	case "character varying", "text", "character":
		return semtype.String
	default:
		return semtype.Integer
	}
}
