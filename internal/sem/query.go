package sem

import (
	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// buildImmediateQuery lowers a query used directly as an expression (§4.5):
// Select evaluates to an array of the table's row struct; Insert/Update/
// Delete evaluate to the affected row count.
func (b *builder) buildImmediateQuery(e *astinput.Expression) (*Expr, error) {
	q, err := b.buildQuery(e.Query)
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprImmediateQuery, SemType: b.queryResultType(q), Owned: Owned, Query: q}, nil
}

func (b *builder) queryResultType(q *Query) *semtype.Type {
	if q.Kind != QuerySelect {
		return semtype.NewInteger()
	}
	table, _ := b.tables.GetByID(q.TableID)
	s, _ := b.structs.GetByID(table.StructID)
	return semtype.NewArray(semtype.NewNamedStruct(s.ID, s.Name, s.Fields))
}

// buildQuery resolves a table reference and lowers every clause's value
// expressions, checking each against the table's declared column types —
// §4.5's "a query's values must match the referenced column's type" rule.
// Grounded on original_source/compiler/src/semantics/queries.rs.
func (b *builder) buildQuery(aq *astinput.Query) (*Query, error) {
	tableID, ok := b.prog.TableByName[aq.Table]
	if !ok {
		return nil, qlerr.New(qlerr.UndefinedTable, aq.Table)
	}
	table, _ := b.tables.GetByID(tableID)
	ds, _ := b.datasources.GetByID(table.DatasourceID)

	mutates := aq.Kind != astinput.QuerySelect
	if mutates {
		if table.Readonly {
			return nil, qlerr.New(qlerr.ReadonlyTableWrite, aq.Table)
		}
		if ds.Readonly {
			return nil, qlerr.New(qlerr.ReadonlyDatasourceWrite, ds.Name)
		}
	}

	q := &Query{TableID: tableID}

	switch aq.Kind {
	case astinput.QuerySelect:
		q.Kind = QuerySelect
		w, err := b.buildWhere(table, aq.Where)
		if err != nil {
			return nil, err
		}
		q.Where = w
	case astinput.QueryDelete:
		q.Kind = QueryDelete
		w, err := b.buildWhere(table, aq.Where)
		if err != nil {
			return nil, err
		}
		q.Where = w
	case astinput.QueryUpdate:
		q.Kind = QueryUpdate
		w, err := b.buildWhere(table, aq.Where)
		if err != nil {
			return nil, err
		}
		q.Where = w
		for _, a := range aq.Assignments {
			idx, ok := table.ColumnIndex[a.Column]
			if !ok {
				return nil, qlerr.New(qlerr.UndefinedColumn, a.Column)
			}
			val, err := b.buildExpression(&a.Value)
			if err != nil {
				return nil, err
			}
			colType := b.columnType(table, idx)
			if !colType.TryDowncast(val.SemType) {
				return nil, qlerr.New(qlerr.IncompatibleColumnValue, a.Column)
			}
			q.Assignments = append(q.Assignments, UpdateAssignment{ColumnIndex: idx, Value: *val})
		}
	case astinput.QueryInsert:
		q.Kind = QueryInsert
		if aq.Value == nil {
			return nil, qlerr.New(qlerr.IncompatibleInsertData, aq.Table)
		}
		val, err := b.buildExpression(aq.Value)
		if err != nil {
			return nil, err
		}
		rowType := semtype.NewAny()
		if s, ok := b.structs.GetByID(table.StructID); ok {
			rowType = semtype.NewNamedStruct(s.ID, s.Name, s.Fields)
		}
		// Insert accepts either a single row struct or an array of them
		// (a bulk insert); codegen branches on val.SemType.Tag() to tell
		// the two apart.
		if !rowType.TryDowncast(val.SemType) && !semtype.NewArray(rowType).TryDowncast(val.SemType) {
			return nil, qlerr.New(qlerr.IncompatibleInsertData, aq.Table)
		}
		q.Value = val
	default:
		return nil, qlerr.Newf(qlerr.BuilderFailure, string(aq.Kind), "unrecognized query kind")
	}
	return q, nil
}

func (b *builder) buildWhere(table *Table, w *astinput.WhereClause) (*Where, error) {
	if w == nil {
		return nil, nil
	}
	idx, ok := table.ColumnIndex[w.Column]
	if !ok {
		return nil, qlerr.New(qlerr.UndefinedColumn, w.Column)
	}
	val, err := b.buildExpression(&w.Value)
	if err != nil {
		return nil, err
	}
	colType := b.columnType(table, idx)
	if !colType.TryDowncast(val.SemType) {
		return nil, qlerr.New(qlerr.IncompatibleColumnValue, w.Column)
	}
	return &Where{ColumnIndex: idx, Value: *val}, nil
}

func (b *builder) columnType(table *Table, idx int) *semtype.Type {
	s, _ := b.structs.GetByID(table.StructID)
	return s.Fields[s.FieldOrder[idx]]
}
