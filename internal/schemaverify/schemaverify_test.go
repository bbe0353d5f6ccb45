package schemaverify

import (
	"context"
	"testing"

	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/schemaverify/livecolumn"
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLiveSchema struct {
	columns map[string]livecolumn.ColumnType
	err     error
	closed  bool
}

func (f *fakeLiveSchema) ColumnTypes(ctx context.Context, table string) (map[string]livecolumn.ColumnType, error) {
	return f.columns, f.err
}

func (f *fakeLiveSchema) Close() error {
	f.closed = true
	return nil
}

func usersProgram() (*sem.SemProgram, *sem.Table) {
	fields := map[string]*semtype.Type{
		"id":   semtype.NewInteger(),
		"name": semtype.NewString(),
	}
	table := &sem.Table{ID: 1, Name: "users", DatasourceID: 1, StructID: 1}
	prog := &sem.SemProgram{
		Structs: map[uint32]*sem.Struct{1: {ID: 1, Name: "users", FieldOrder: []string{"id", "name"}, Fields: fields}},
		Tables:  map[uint32]*sem.Table{1: table},
	}
	return prog, table
}

func TestVerifyTablePassesOnMatchingColumns(t *testing.T) {
	prog, table := usersProgram()
	live := &fakeLiveSchema{columns: map[string]livecolumn.ColumnType{
		"id":   {Name: "id", SemTag: semtype.Integer},
		"name": {Name: "name", SemTag: semtype.String},
	}}

	err := verifyTable(context.Background(), prog, table, live)
	require.NoError(t, err)
}

func TestVerifyTableFailsOnMissingLiveColumn(t *testing.T) {
	prog, table := usersProgram()
	live := &fakeLiveSchema{columns: map[string]livecolumn.ColumnType{
		"id": {Name: "id", SemTag: semtype.Integer},
	}}

	err := verifyTable(context.Background(), prog, table, live)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.IncompatibleColumnValue, qerr.Kind)
}

func TestVerifyTableFailsOnMismatchedColumnType(t *testing.T) {
	prog, table := usersProgram()
	live := &fakeLiveSchema{columns: map[string]livecolumn.ColumnType{
		"id":   {Name: "id", SemTag: semtype.Bool},
		"name": {Name: "name", SemTag: semtype.String},
	}}

	err := verifyTable(context.Background(), prog, table, live)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.IncompatibleColumnValue, qerr.Kind)
}

func TestOpenDSNRejectsMissingScheme(t *testing.T) {
	_, err := openDSN("localhost:3306")
	require.Error(t, err)
}

func TestOpenDSNRejectsUnknownScheme(t *testing.T) {
	_, err := openDSN("oracle://localhost")
	require.Error(t, err)
}

func TestVerifyDatasourcesSkipsUndeclaredDSN(t *testing.T) {
	prog, _ := usersProgram()
	prog.Datasources = map[uint32]*sem.Datasource{1: {ID: 1, Name: "db"}}

	// No entry for "db" in dsns: component L is best-effort, so this must
	// not attempt a connection (and therefore not error) at all.
	err := VerifyDatasources(context.Background(), prog, map[string]string{})
	require.NoError(t, err)
}
