// Package mssqlcheck is component L's SQL Server backend.
//
// Grounded on database/mssql/database.go's NewDatabase (sql.Open("sqlserver",
// dsn)); uses github.com/denisenkom/go-mssqldb, the upstream driver that
// microsoft/go-mssqldb is forked from, which brings in golang-sql/civil and
// golang-sql/sqlexp as transitive dependencies.
package mssqlcheck

import (
	"context"
	"database/sql"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/qlcompiler/qlc/internal/schemaverify/livecolumn"
	"github.com/qlcompiler/qlc/internal/semtype"
)

type Checker struct {
	db *sql.DB
}

// Open connects to a SQL Server instance. go-mssqldb accepts a full
// sqlserver:// URL directly.
func Open(dsn string) (*Checker, error) {
	db, err := sql.Open("sqlserver", "sqlserver://"+dsn)
	if err != nil {
		return nil, err
	}
	return &Checker{db: db}, nil
}

func (c *Checker) Close() error { return c.db.Close() }

// ColumnTypes reads table's columns from information_schema.columns, the
// same catalog view available on SQL Server.
func (c *Checker) ColumnTypes(ctx context.Context, table string) (map[string]livecolumn.ColumnType, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = @p1
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

func classify(mssqlType string) semtype.Tag {
	switch mssqlType {
	case "bit":
		return semtype.Bool
	case "varchar", "nvarchar", "char", "nchar", "text", "ntext":
		return semtype.String
	default:
		return semtype.Integer
	}
}
