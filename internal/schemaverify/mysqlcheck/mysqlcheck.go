// Package mysqlcheck is component L's MySQL backend: a thin
// information_schema reader used only to cross-check declared column
// types, never to diff or generate DDL.
//
// Grounded on database/mysql/database.go's NewDatabase (sql.Open("mysql",
// dsn) against github.com/go-sql-driver/mysql, plus its habit of logging
// one slog.Debug line per server round trip).
package mysqlcheck

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"

	"github.com/qlcompiler/qlc/internal/schemaverify/livecolumn"
	"github.com/qlcompiler/qlc/internal/semtype"
)

type Checker struct {
	db *sql.DB
}

// Open connects to a MySQL server. dsn is the driver-native DSN
// (schemaverify.openDSN has already stripped the "mysql://" scheme
// prefix it was keyed on).
func Open(dsn string) (*Checker, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	slog.Debug("mysqlcheck: opened connection")
	return &Checker{db: db}, nil
}

func (c *Checker) Close() error { return c.db.Close() }

// ColumnTypes reads table's columns from information_schema, the same
// system view database/mysql/database.go's own column introspection
// queries against.
func (c *Checker) ColumnTypes(ctx context.Context, table string) (map[string]livecolumn.ColumnType, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = database() AND table_name = ?
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

func classify(mysqlType string) semtype.Tag {
	switch mysqlType {
	case "tinyint":
		return semtype.Bool
	case "varchar", "text", "char", "mediumtext", "longtext":
		return semtype.String
	default:
		return semtype.Integer
	}
}
