// Package schemaverify is component L: an opt-in cross-check of a
// SemProgram's declared table columns against a live database's actual
// column types, reported through the same qlerr taxonomy every other
// component uses.
//
// Grounded on database/database.go's Database interface and its four
// per-backend implementations — this package mirrors that one-interface,
// four-implementations shape, but narrowed to the single read-only
// capability a compile-time schema check needs (column types), not the full
// DDL-diffing surface those implementations exist for.
package schemaverify

import (
	"context"
	"fmt"
	"strings"

	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/schemaverify/livecolumn"
	"github.com/qlcompiler/qlc/internal/schemaverify/mssqlcheck"
	"github.com/qlcompiler/qlc/internal/schemaverify/mysqlcheck"
	"github.com/qlcompiler/qlc/internal/schemaverify/postgrescheck"
	"github.com/qlcompiler/qlc/internal/schemaverify/sqlitecheck"
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// openers maps the DSN scheme a datasource's connection string is prefixed
// with to the backend that understands it, one entry per teacher database/
// driver this compiler's live-schema path exercises.
var openers = map[string]func(dsn string) (livecolumn.LiveSchema, error){
	"mysql":     func(dsn string) (livecolumn.LiveSchema, error) { return mysqlcheck.Open(dsn) },
	"postgres":  func(dsn string) (livecolumn.LiveSchema, error) { return postgrescheck.Open(dsn) },
	"sqlserver": func(dsn string) (livecolumn.LiveSchema, error) { return mssqlcheck.Open(dsn) },
	"sqlite":    func(dsn string) (livecolumn.LiveSchema, error) { return sqlitecheck.Open(dsn, false) },
	"sqlite3":   func(dsn string) (livecolumn.LiveSchema, error) { return sqlitecheck.Open(dsn, true) },
}

// openDSN splits a "scheme://rest" connection string into the backend it
// selects and the driver-native DSN that backend's sql.Open call expects.
func openDSN(raw string) (livecolumn.LiveSchema, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("schemaverify: dsn %q has no scheme (expected mysql://, postgres://, sqlserver://, sqlite://, or sqlite3://)", raw)
	}
	open, ok := openers[scheme]
	if !ok {
		return nil, fmt.Errorf("schemaverify: unrecognized dsn scheme %q", scheme)
	}
	return open(rest)
}

// VerifyDatasources opens a live connection for every datasource prog
// declares that also has an entry in dsns, and downcasts each of that
// datasource's tables' declared column types against the live columns. A
// datasource named in the program with no corresponding dsn is skipped —
// component L is best-effort, never required for an offline compile.
func VerifyDatasources(ctx context.Context, prog *sem.SemProgram, dsns map[string]string) error {
	for dsID, ds := range prog.Datasources {
		dsn, ok := dsns[ds.Name]
		if !ok {
			continue
		}
		if err := verifyOne(ctx, prog, dsID, dsn); err != nil {
			return err
		}
	}
	return nil
}

func verifyOne(ctx context.Context, prog *sem.SemProgram, dsID uint32, dsn string) error {
	live, err := openDSN(dsn)
	if err != nil {
		return qlerr.Wrap(qlerr.BuilderFailure, "schemaverify: connecting", err)
	}
	defer live.Close()

	for _, table := range prog.Tables {
		if table.DatasourceID != dsID {
			continue
		}
		if err := verifyTable(ctx, prog, table, live); err != nil {
			return err
		}
	}
	return nil
}

func verifyTable(ctx context.Context, prog *sem.SemProgram, table *sem.Table, live livecolumn.LiveSchema) error {
	liveCols, err := live.ColumnTypes(ctx, table.Name)
	if err != nil {
		return qlerr.Wrap(qlerr.BuilderFailure, fmt.Sprintf("schemaverify: reading columns of %q", table.Name), err)
	}

	row := prog.Structs[table.StructID]
	for name, declared := range row.Fields {
		live, ok := liveCols[name]
		if !ok {
			return qlerr.Newf(qlerr.IncompatibleColumnValue, table.Name, "column %q declared but absent from the live schema", name)
		}
		liveType := semtype.New(semtype.Kind{Tag: live.SemTag})
		if !declared.TryDowncast(liveType) && !liveType.TryDowncast(declared) {
			return qlerr.Newf(qlerr.IncompatibleColumnValue, table.Name, "column %q declared as %s but the live schema reports %s", name, declared, live.SemTag)
		}
	}
	return nil
}
