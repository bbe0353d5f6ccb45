package sem

import (
	"testing"

	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intType() astinput.TypeNode  { return astinput.TypeNode{Kind: astinput.TypeKindInteger} }
func boolType() astinput.TypeNode { return astinput.TypeNode{Kind: astinput.TypeKindBool} }

func mainOnly(body []astinput.Statement) *astinput.Program {
	return &astinput.Program{
		Functions: []astinput.Function{
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: body},
		},
	}
}

func returnInt(v int64) astinput.Statement {
	return astinput.Statement{
		Kind:    astinput.StmtReturn,
		HasExpr: true,
		Expr:    &astinput.Expression{Kind: astinput.ExprIntLit, IntValue: v},
	}
}

// E1-style scenario: the smallest possible program, a main that returns a
// literal integer.
func TestBuildMinimalMain(t *testing.T) {
	prog := mainOnly([]astinput.Statement{returnInt(0)})
	sp, err := Build(prog)
	require.NoError(t, err)
	require.NotZero(t, sp.MainFunctionID)

	main := sp.Functions[sp.MainFunctionID]
	require.NotNil(t, main)
	assert.Equal(t, semtype.Integer, main.ReturnType.Tag())
	assert.True(t, main.Body.Terminates)
}

func TestBuildRejectsMissingMain(t *testing.T) {
	prog := &astinput.Program{}
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.InvalidMainSignature, qerr.Kind)
}

func TestBuildRejectsNonIntegerMainReturn(t *testing.T) {
	prog := &astinput.Program{
		Functions: []astinput.Function{
			{
				Name:       "main",
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindString},
				Body: []astinput.Statement{
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr:    &astinput.Expression{Kind: astinput.ExprStringLit, StringValue: "x"},
					},
				},
			},
		},
	}
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.InvalidMainSignature, qerr.Kind)
}

func TestBuildRejectsInexhaustiveReturnPaths(t *testing.T) {
	prog := &astinput.Program{
		Functions: []astinput.Function{
			{
				Name:       "pick",
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger},
				Body: []astinput.Statement{
					{
						Kind: astinput.StmtIf,
						Branches: []astinput.ConditionalBranch{
							{
								Condition: astinput.Expression{Kind: astinput.ExprBoolLit, BoolValue: true},
								Body:      []astinput.Statement{returnInt(1)},
							},
						},
						// No else branch: a conditional with no else never
						// guarantees a return on every path.
					},
				},
			},
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.InexhaustiveReturnPaths, qerr.Kind)
}

// main itself is exempt from the inexhaustive-return-paths check: a
// fall-through path gets an implicit Return(0) injected instead of being
// rejected, mirroring a process that exits 0 when it runs off the end.
func TestBuildInjectsImplicitZeroReturnForFallthroughMain(t *testing.T) {
	prog := mainOnly([]astinput.Statement{
		{
			Kind: astinput.StmtExpr,
			ExprStmt: &astinput.Expression{
				Kind: astinput.ExprCall,
				Name: "print_integer",
				Args: []astinput.Expression{{Kind: astinput.ExprIntLit, IntValue: 1}},
			},
		},
	})
	sp, err := Build(prog)
	require.NoError(t, err)

	main := sp.Functions[sp.MainFunctionID]
	require.True(t, main.Body.Terminates)
	last := main.Body.Statements[len(main.Body.Statements)-1]
	require.Equal(t, StmtReturn, last.Kind)
	require.NotNil(t, last.ReturnExpr)
	assert.Equal(t, int64(0), last.ReturnExpr.IntValue)
}

// A fall-through Void function gets an implicit bare Return appended so the
// IR's terminates invariant holds without codegen having to paper over it.
func TestBuildInjectsImplicitReturnForFallthroughVoidFunction(t *testing.T) {
	prog := &astinput.Program{
		Functions: []astinput.Function{
			{
				Name: "log_it",
				Body: []astinput.Statement{
					{
						Kind: astinput.StmtExpr,
						ExprStmt: &astinput.Expression{
							Kind: astinput.ExprCall,
							Name: "print_integer",
							Args: []astinput.Expression{{Kind: astinput.ExprIntLit, IntValue: 1}},
						},
					},
				},
			},
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	sp, err := Build(prog)
	require.NoError(t, err)

	fn := sp.Functions[sp.FunctionByName["log_it"]]
	require.True(t, fn.Body.Terminates)
	last := fn.Body.Statements[len(fn.Body.Statements)-1]
	assert.Equal(t, StmtReturn, last.Kind)
	assert.Nil(t, last.ReturnExpr)
}

// Tables declare a row struct whose column types must all be primitive.
func TestBuildTableDeclaresRowStruct(t *testing.T) {
	prog := &astinput.Program{
		Datasources: []astinput.Datasource{{Name: "db", Readonly: false}},
		Tables: []astinput.Table{
			{
				Name:       "users",
				Datasource: "db",
				Columns: []astinput.Column{
					{Name: "id", Type: intType()},
					{Name: "active", Type: boolType()},
				},
			},
		},
		Functions: []astinput.Function{
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	sp, err := Build(prog)
	require.NoError(t, err)

	tableID, ok := sp.TableByName["users"]
	require.True(t, ok)
	table := sp.Tables[tableID]
	require.NotNil(t, table)

	row := sp.Structs[table.StructID]
	require.NotNil(t, row)
	assert.Equal(t, []string{"id", "active"}, row.FieldOrder)
	assert.Equal(t, semtype.Integer, row.Fields["id"].Tag())
	assert.Equal(t, semtype.Bool, row.Fields["active"].Tag())
	assert.Equal(t, 0, table.ColumnIndex["id"])
	assert.Equal(t, 1, table.ColumnIndex["active"])
}

func TestBuildRejectsTableWithUndefinedDatasource(t *testing.T) {
	prog := &astinput.Program{
		Tables: []astinput.Table{
			{Name: "users", Datasource: "missing", Columns: []astinput.Column{{Name: "id", Type: intType()}}},
		},
		Functions: []astinput.Function{
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.UndefinedDatasource, qerr.Kind)
}

func TestBuildRejectsNonPrimitiveColumnType(t *testing.T) {
	prog := &astinput.Program{
		Datasources: []astinput.Datasource{{Name: "db"}},
		Tables: []astinput.Table{
			{
				Name:       "users",
				Datasource: "db",
				Columns: []astinput.Column{
					{Name: "tags", Type: astinput.TypeNode{Kind: astinput.TypeKindArray, Elem: &astinput.TypeNode{Kind: astinput.TypeKindString}}},
				},
			},
		},
		Functions: []astinput.Function{
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.NonPrimitiveColumnType, qerr.Kind)
}

// A named struct's shape is registered the first time a literal of that
// name is seen anywhere in the program, before any column or parameter
// type referencing it by name is resolved.
func TestBuildRegistersNamedStructFromFirstLiteral(t *testing.T) {
	prog := &astinput.Program{
		Functions: []astinput.Function{
			{
				Name: "make_point",
				Params: []astinput.Param{
					{Name: "x", Type: intType()},
					{Name: "y", Type: intType()},
				},
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindStruct, Name: "Point"},
				Body: []astinput.Statement{
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr: &astinput.Expression{
							Kind:       astinput.ExprStructLit,
							StructName: "Point",
							Fields: map[string]astinput.Expression{
								"x": {Kind: astinput.ExprIdent, Name: "x"},
								"y": {Kind: astinput.ExprIdent, Name: "y"},
							},
						},
					},
				},
			},
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	sp, err := Build(prog)
	require.NoError(t, err)

	structID, ok := sp.StructByName["Point"]
	require.True(t, ok)
	point := sp.Structs[structID]
	require.NotNil(t, point)
	assert.ElementsMatch(t, []string{"x", "y"}, point.FieldOrder)

	fn := sp.Functions[sp.FunctionByName["make_point"]]
	assert.Equal(t, semtype.NamedStruct, fn.ReturnType.Tag())
}

// A builtin call (print_integer) resolves to a BuiltinCall node with Void
// type rather than an undefined-function error, even though no such
// function is declared anywhere in the program.
func TestBuildResolvesBuiltinCall(t *testing.T) {
	prog := mainOnly([]astinput.Statement{
		{
			Kind: astinput.StmtExpr,
			ExprStmt: &astinput.Expression{
				Kind: astinput.ExprCall,
				Name: "print_integer",
				Args: []astinput.Expression{{Kind: astinput.ExprIntLit, IntValue: 42}},
			},
		},
		returnInt(0),
	})
	sp, err := Build(prog)
	require.NoError(t, err)

	main := sp.Functions[sp.MainFunctionID]
	require.Len(t, main.Body.Statements, 2)
	call := main.Body.Statements[0].Expr
	require.NotNil(t, call)
	assert.True(t, call.IsBuiltin)
	assert.Equal(t, BuiltinPrintInteger, call.Builtin)
	assert.Equal(t, semtype.Void, call.SemType.Tag())
}

func TestBuildRejectsUndefinedFunctionCall(t *testing.T) {
	prog := mainOnly([]astinput.Statement{
		{
			Kind:     astinput.StmtExpr,
			ExprStmt: &astinput.Expression{Kind: astinput.ExprCall, Name: "not_a_real_function"},
		},
		returnInt(0),
	})
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.UndefinedFunction, qerr.Kind)
}

// A closure captures a variable from its enclosing function's scope; the
// capture shows up in CapturedVariables keyed by the outer variable's id.
func TestBuildClosureCapturesOuterVariable(t *testing.T) {
	prog := mainOnly([]astinput.Statement{
		{
			Kind:    astinput.StmtVarDecl,
			VarName: "n",
			Expr:    &astinput.Expression{Kind: astinput.ExprIntLit, IntValue: 7},
		},
		{
			Kind:    astinput.StmtVarDecl,
			VarName: "adder",
			Expr: &astinput.Expression{
				Kind:       astinput.ExprClosure,
				Params:     []astinput.Param{{Name: "x", Type: intType()}},
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger},
				Body: []astinput.Statement{
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr: &astinput.Expression{
							Kind: astinput.ExprBinary,
							Op:   "+",
							Left: &astinput.Expression{Kind: astinput.ExprIdent, Name: "x"},
							Right: &astinput.Expression{Kind: astinput.ExprIdent, Name: "n"},
						},
					},
				},
			},
		},
		returnInt(0),
	})
	sp, err := Build(prog)
	require.NoError(t, err)
	require.Len(t, sp.Closures, 1)

	var closure *Closure
	for _, c := range sp.Closures {
		closure = c
	}
	require.NotNil(t, closure)
	require.Len(t, closure.CapturedVariables, 1)
	assert.False(t, closure.Body.IsQuery)
}

func TestBuildRejectsDuplicateDatasource(t *testing.T) {
	prog := &astinput.Program{
		Datasources: []astinput.Datasource{{Name: "db"}, {Name: "db"}},
		Functions: []astinput.Function{
			{Name: "main", ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger}, Body: []astinput.Statement{returnInt(0)}},
		},
	}
	_, err := Build(prog)
	require.Error(t, err)
	var qerr *qlerr.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, qlerr.DuplicateDatasourceDeclaration, qerr.Kind)
}
