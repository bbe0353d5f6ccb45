package query

import (
	"testing"

	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProgram() *sem.SemProgram {
	fields := map[string]*semtype.Type{
		"id":   semtype.NewInteger(),
		"name": semtype.NewString(),
	}
	return &sem.SemProgram{
		Structs: map[uint32]*sem.Struct{1: {ID: 1, Name: "users", FieldOrder: []string{"id", "name"}, Fields: fields}},
		Tables: map[uint32]*sem.Table{
			1: {ID: 1, Name: "users", StructID: 1, ColumnIndex: map[string]int{"id": 0, "name": 1}},
		},
	}
}

func TestBuildSelectWithWhere(t *testing.T) {
	prog := testProgram()
	q := &sem.Query{
		Kind:    sem.QuerySelect,
		TableID: 1,
		Where:   &sem.Where{ColumnIndex: 0, Value: sem.Expr{SemType: semtype.NewInteger()}},
	}
	plan, err := Build(q, prog)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id = ?1", plan.SQL)
	require.Len(t, plan.Params, 1)
	assert.Equal(t, BindInteger, plan.Params[0].Kind)
	assert.True(t, plan.IsSelect)
}

func TestBuildInsertListsEveryColumn(t *testing.T) {
	prog := testProgram()
	q := &sem.Query{Kind: sem.QueryInsert, TableID: 1}
	plan, err := Build(q, prog)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (id, name) VALUES (?1, ?2)", plan.SQL)
	require.Len(t, plan.Params, 2)
	assert.Equal(t, BindString, plan.Params[1].Kind)
}

func TestBuildUpdateBindsAssignmentsThenWhere(t *testing.T) {
	prog := testProgram()
	q := &sem.Query{
		Kind:    sem.QueryUpdate,
		TableID: 1,
		Assignments: []sem.UpdateAssignment{
			{ColumnIndex: 1, Value: sem.Expr{SemType: semtype.NewString()}},
		},
		Where: &sem.Where{ColumnIndex: 0, Value: sem.Expr{SemType: semtype.NewInteger()}},
	}
	plan, err := Build(q, prog)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ?1 WHERE id = ?2", plan.SQL)
	require.Len(t, plan.Params, 2)
}
