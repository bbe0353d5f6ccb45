package codegen

import (
	"testing"

	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildProgram(t *testing.T, prog *astinput.Program) *sem.SemProgram {
	t.Helper()
	sp, err := sem.Build(prog)
	require.NoError(t, err)
	return sp
}

// A main that calls print_integer and returns 0 should render the
// __ql__user_main function, a trampoline "main" wrapping it with the
// runtime init/exit calls, and a direct call to the print_integer symbol.
func TestBuildRendersMainAndBuiltinCall(t *testing.T) {
	prog := &astinput.Program{
		Functions: []astinput.Function{
			{
				Name:       "main",
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger},
				Body: []astinput.Statement{
					{
						Kind: astinput.StmtExpr,
						ExprStmt: &astinput.Expression{
							Kind: astinput.ExprCall,
							Name: "print_integer",
							Args: []astinput.Expression{{Kind: astinput.ExprIntLit, IntValue: 42}},
						},
					},
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr:    &astinput.Expression{Kind: astinput.ExprIntLit, IntValue: 0},
					},
				},
			},
		},
	}

	llvmIR, err := Build(buildProgram(t, prog))
	require.NoError(t, err)

	assert.Contains(t, llvmIR, "define i32 @main()")
	assert.Contains(t, llvmIR, "__ql__user_main")
	assert.Contains(t, llvmIR, "qlrt_print_integer")
	assert.Contains(t, llvmIR, "qlrt_init")
	assert.Contains(t, llvmIR, "qlrt_shutdown")
}

// A function with two integer parameters that adds them renders as a plain
// top-level function with the unified leading i8* ctx parameter.
func TestBuildRendersLeadingCtxParameter(t *testing.T) {
	prog := &astinput.Program{
		Functions: []astinput.Function{
			{
				Name: "add",
				Params: []astinput.Param{
					{Name: "a", Type: astinput.TypeNode{Kind: astinput.TypeKindInteger}},
					{Name: "b", Type: astinput.TypeNode{Kind: astinput.TypeKindInteger}},
				},
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger},
				Body: []astinput.Statement{
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr: &astinput.Expression{
							Kind: astinput.ExprBinary,
							Op:   "+",
							Left: &astinput.Expression{Kind: astinput.ExprIdent, Name: "a"},
							Right: &astinput.Expression{Kind: astinput.ExprIdent, Name: "b"},
						},
					},
				},
			},
			{
				Name:       "main",
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger},
				Body: []astinput.Statement{
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr:    &astinput.Expression{Kind: astinput.ExprIntLit, IntValue: 0},
					},
				},
			},
		},
	}

	llvmIR, err := Build(buildProgram(t, prog))
	require.NoError(t, err)

	assert.Contains(t, llvmIR, "define i64 @add(i8* %ctx")
	assert.Contains(t, llvmIR, "add i64")
}

// A table's row struct gets its own external typeinfo global, the stable
// address StructAlloc/AddRef/RemoveRef use to find that struct's field
// layout at link time.
func TestBuildRendersTableTypeInfoGlobal(t *testing.T) {
	prog := &astinput.Program{
		Datasources: []astinput.Datasource{{Name: "db"}},
		Tables: []astinput.Table{
			{
				Name:       "users",
				Datasource: "db",
				Columns: []astinput.Column{
					{Name: "id", Type: astinput.TypeNode{Kind: astinput.TypeKindInteger}},
					{Name: "active", Type: astinput.TypeNode{Kind: astinput.TypeKindBool}},
				},
			},
		},
		Functions: []astinput.Function{
			{
				Name:       "main",
				ReturnType: &astinput.TypeNode{Kind: astinput.TypeKindInteger},
				Body: []astinput.Statement{
					{
						Kind:    astinput.StmtReturn,
						HasExpr: true,
						Expr:    &astinput.Expression{Kind: astinput.ExprIntLit, IntValue: 0},
					},
				},
			},
		},
	}

	llvmIR, err := Build(buildProgram(t, prog))
	require.NoError(t, err)

	assert.Contains(t, llvmIR, "__ql_typeinfo_users")
}
