// Package sem builds the semantic IR described in §3 and §4.4: it walks an
// astinput.Program and produces a SemProgram of typed, scope- and
// lifetime-annotated IR, resolving identifiers, inferring and unifying
// types, and lowering queries and closures along the way.
//
// Grounded on original_source/compiler/src/semantics/{ir,mod,control_flow,
// functions,closures,queries,variables,binops,data}.rs — this package is
// the Go realization of that module, generalized from Rc<RefCell<..>> +
// HashMap bookkeeping into the symtab/scope/semtype packages.
package sem

import (
	"github.com/qlcompiler/qlc/internal/semtype"
)

// Ownership mirrors §3's per-value ownership tag.
type Ownership int

const (
	Owned Ownership = iota
	Borrowed
	Trivial
)

// Variable is §3's Variable: {id, name, sem_type}. Scope membership lives
// in the scope.Tracker, not here.
type Variable struct {
	ID      uint32
	Name    string
	SemType *semtype.Type
}

// Struct is a registered struct shape: named, with a fixed field order.
type Struct struct {
	ID         uint32
	Name       string
	FieldOrder []string
	Fields     map[string]*semtype.Type
}

// Datasource mirrors §3's Datasource registry entry.
type Datasource struct {
	ID       uint32
	Name     string
	Readonly bool
}

// Table mirrors §3's Table registry entry: a struct-typed rowset bound to a
// datasource.
type Table struct {
	ID           uint32
	Name         string
	DatasourceID uint32
	Readonly     bool
	StructID     uint32
	// ColumnIndex maps column name to its ordinal position in the row
	// struct's FieldOrder — query lowering resolves Where/Update column
	// names to indices at this table.
	ColumnIndex map[string]int
}

// ColumnNameAt reverse-looks-up a column's name from its ordinal index,
// used by internal/query when rendering SQL text.
func (t *Table) ColumnNameAt(idx int) string {
	for name, i := range t.ColumnIndex {
		if i == idx {
			return name
		}
	}
	return ""
}

// Function mirrors §3's Function registry entry.
type Function struct {
	ID         uint32
	Name       string
	ParamIDs   []uint32
	ParamTypes []*semtype.Type
	ReturnType *semtype.Type
	Body       Block
}

// Closure mirrors §3's Closure registry entry, adding the capture list.
type Closure struct {
	ID                 uint32
	ParamIDs           []uint32
	ParamTypes         []*semtype.Type
	ReturnType         *semtype.Type
	CapturedVariables  []CapturePair // (outer_var_id, inner_var_id)
	Body               ClosureBody
}

type CapturePair struct {
	OuterVarID uint32
	InnerVarID uint32
}

// ClosureBody is either Procedural (a Block) or Query (the closure body is
// a single query; codegen keeps a statement prepared for it in the
// callable record's third word, not in the capture record, §4.6).
type ClosureBody struct {
	IsQuery bool
	Block   Block
	Query   *Query
}

// Block is §3's Block: {statements, terminates}.
type Block struct {
	Statements []Stmt
	Terminates bool
}

// Stmt is the sum type of §3's Statement variants, IR form.
type Stmt struct {
	Kind StmtKind

	// VarDecl / VarAssign
	VarID uint32
	Init  *Expr // VarDecl init / VarAssign new value

	// Expr (LoneExpression)
	Expr *Expr

	// If
	Branches []CondBranch
	Else     *Block

	// Loop
	LoopID uint32
	Cond   *Expr
	Body   *Block

	// Return
	ReturnExpr *Expr // nil for void return

	// Break / Continue carry LoopID above.

	// Drop
	DropVarID uint32
}

type StmtKind int

const (
	StmtVarDecl StmtKind = iota
	StmtVarAssign
	StmtExprKind
	StmtIf
	StmtLoop
	StmtReturn
	StmtBreak
	StmtContinue
	StmtDrop
)

type CondBranch struct {
	Condition Expr
	Body      Block
}

// Expr is the sum type of §3's Expression variants, IR form: every
// expression carries its resolved SemType and Ownership.
type Expr struct {
	Kind    ExprKind
	SemType *semtype.Type
	Owned   Ownership

	IntValue    int64
	BoolValue   bool
	StringValue string

	VariableID uint32

	Elements []Expr

	// Struct literal: StructID == 0 means anonymous (kept as a field map
	// for later unification, per §4.4).
	StructID     uint32
	StructFields map[string]Expr
	FieldOrder   []string // evaluation/emission order of StructFields

	// Field read
	StructExpr  *Expr
	FieldIndex  uint32

	// Array index
	ArrayExpr *Expr
	IndexExpr *Expr

	// Arithmetic / compare
	Left *Expr
	Right *Expr
	ArithOp ArithOp
	CompareOp CompareOp

	// Calls
	FunctionID  uint32   // direct call
	CallExpr    *Expr    // indirect call (callable-typed expression)
	Args        []Expr
	Builtin     BuiltinFunction
	IsBuiltin   bool

	// Method call
	Receiver *Expr
	Method   BuiltinMethod

	// Closure reference
	ClosureID uint32

	// Immediate query
	Query *Query
}

type ExprKind int

const (
	ExprIntLit ExprKind = iota
	ExprBoolLit
	ExprStringLit
	ExprVariable
	ExprArrayLit
	ExprStructLit
	ExprFieldRead
	ExprArrayIndex
	ExprAdd
	ExprSubtract
	ExprCompare
	ExprDirectCall
	ExprIndirectCall
	ExprBuiltinCall
	ExprMethodCall
	ExprClosureRef
	ExprImmediateQuery
)

type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
)

type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
)

type BuiltinFunction int

const (
	BuiltinPrintString BuiltinFunction = iota
	BuiltinPrintInteger
	BuiltinPrintBool
	BuiltinInputInteger
	BuiltinInputString
)

type BuiltinMethod int

const (
	MethodArrayLength BuiltinMethod = iota
	MethodArrayAppend
	MethodArrayPop
)

// Query is §3's Query IR: resolved table id, pre-evaluated value
// expressions, and resolved column indices.
type Query struct {
	Kind    QueryKind
	TableID uint32
	Where   *Where   // Select/Delete; optional on Update
	Assignments []UpdateAssignment // Update
	Value   *Expr    // Insert
}

type QueryKind int

const (
	QuerySelect QueryKind = iota
	QueryInsert
	QueryUpdate
	QueryDelete
)

type Where struct {
	ColumnIndex int
	Value       Expr
}

type UpdateAssignment struct {
	ColumnIndex int
	Value       Expr
}

// SemProgram is component D's output: every registry plus the two-pass
// declare/define results.
type SemProgram struct {
	Datasources map[uint32]*Datasource
	Tables      map[uint32]*Table
	Structs     map[uint32]*Struct
	Functions   map[uint32]*Function
	Closures    map[uint32]*Closure
	Variables   map[uint32]*Variable

	DatasourceByName map[string]uint32
	TableByName      map[string]uint32
	StructByName     map[string]uint32
	FunctionByName   map[string]uint32

	MainFunctionID uint32
}
