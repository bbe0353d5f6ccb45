// Package query lowers a component D query IR node into the concrete
// prepare/bind/execute/finalize call sequence component G emits, deciding
// the SQL text and parameter order once so codegen never builds SQL
// strings itself.
//
// Grounded on original_source/compiler/src/codegen/mod.rs's query-emission
// path, which builds exactly this "SQL text plus positional bind list"
// shape before handing it to the runtime's prepared-statement calls named
// in §6.
package query

import (
	"fmt"
	"strings"

	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// BindKind says which runtime bind_* entrypoint a parameter needs.
type BindKind int

const (
	BindInteger BindKind = iota
	BindString
	BindBool
)

// Param is one positional bind parameter: its 1-based SQL placeholder
// position, its runtime bind kind, and the semantic IR expression that
// produces its value (already type-checked against the column it binds
// to — see internal/sem's buildQuery).
type Param struct {
	Position int
	Kind     BindKind
	Value    *sem.Expr
}

// Plan is a fully lowered query: the SQL text to prepare, its positional
// parameters in bind order, and — for Select — the row struct its result
// cursor decodes into.
type Plan struct {
	SQL           string
	Params        []Param
	IsSelect      bool
	ResultStructID uint32
}

// Build lowers q against prog's table/struct registries into a Plan.
func Build(q *sem.Query, prog *sem.SemProgram) (*Plan, error) {
	table, ok := prog.Tables[q.TableID]
	if !ok {
		return nil, fmt.Errorf("query: unknown table id %d", q.TableID)
	}
	switch q.Kind {
	case sem.QuerySelect:
		return buildSelect(q, table)
	case sem.QueryInsert:
		return buildInsert(q, table, prog)
	case sem.QueryUpdate:
		return buildUpdate(q, table)
	case sem.QueryDelete:
		return buildDelete(q, table)
	default:
		return nil, fmt.Errorf("query: unrecognized kind %d", q.Kind)
	}
}

func bindKindFromTag(e *sem.Expr) BindKind {
	return bindKindFromFieldType(e.SemType)
}

func bindKindFromFieldType(t *semtype.Type) BindKind {
	switch t.Tag() {
	case semtype.Bool:
		return BindBool
	case semtype.String:
		return BindString
	default:
		return BindInteger
	}
}

func buildSelect(q *sem.Query, table *sem.Table) (*Plan, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", table.Name)
	var params []Param
	if q.Where != nil {
		col := table.ColumnNameAt(q.Where.ColumnIndex)
		fmt.Fprintf(&sb, " WHERE %s = ?1", col)
		params = append(params, Param{Position: 1, Kind: bindKindFromTag(&q.Where.Value), Value: &q.Where.Value})
	}
	return &Plan{SQL: sb.String(), Params: params, IsSelect: true, ResultStructID: table.StructID}, nil
}

func buildDelete(q *sem.Query, table *sem.Table) (*Plan, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", table.Name)
	var params []Param
	if q.Where != nil {
		col := table.ColumnNameAt(q.Where.ColumnIndex)
		fmt.Fprintf(&sb, " WHERE %s = ?1", col)
		params = append(params, Param{Position: 1, Kind: bindKindFromTag(&q.Where.Value), Value: &q.Where.Value})
	}
	return &Plan{SQL: sb.String(), Params: params}, nil
}

func buildUpdate(q *sem.Query, table *sem.Table) (*Plan, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET ", table.Name)
	var params []Param
	pos := 1
	for i, a := range q.Assignments {
		if i > 0 {
			sb.WriteString(", ")
		}
		col := table.ColumnNameAt(a.ColumnIndex)
		fmt.Fprintf(&sb, "%s = ?%d", col, pos)
		params = append(params, Param{Position: pos, Kind: bindKindFromTag(&q.Assignments[i].Value), Value: &q.Assignments[i].Value})
		pos++
	}
	if q.Where != nil {
		col := table.ColumnNameAt(q.Where.ColumnIndex)
		fmt.Fprintf(&sb, " WHERE %s = ?%d", col, pos)
		params = append(params, Param{Position: pos, Kind: bindKindFromTag(&q.Where.Value), Value: &q.Where.Value})
	}
	return &Plan{SQL: sb.String(), Params: params}, nil
}

func buildInsert(q *sem.Query, table *sem.Table, prog *sem.SemProgram) (*Plan, error) {
	s, ok := prog.Structs[table.StructID]
	if !ok {
		return nil, fmt.Errorf("query: table %s has no row struct", table.Name)
	}
	var cols, marks []string
	var params []Param
	for i, name := range s.FieldOrder {
		cols = append(cols, name)
		marks = append(marks, fmt.Sprintf("?%d", i+1))
		// The bound value is the inserted struct's field i; codegen reads
		// it off the struct GenValue by field index rather than this plan
		// carrying its own sub-expression, since q.Value is a single
		// struct-typed expression, not a per-column list.
		params = append(params, Param{Position: i + 1, Kind: bindKindFromFieldType(s.Fields[name])})
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table.Name, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return &Plan{SQL: sql, Params: params}, nil
}
