package sem

import (
	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/scope"
	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/qlcompiler/qlc/internal/symtab"
)

// builder holds every piece of mutable state the two-pass declare/define
// walk needs. One builder serves the whole program; Build is its only
// exported entrypoint.
type builder struct {
	prog *SemProgram

	datasources *symtab.Table[*Datasource]
	tables      *symtab.Table[*Table]
	structs     *symtab.Table[*Struct]
	functions   *symtab.Table[*Function]
	closures    *symtab.Table[*Closure]
	variables   *symtab.Table[*Variable]

	loopIDs *symtab.IDGen

	scope *scope.Tracker
	// names is a stack of lexical frames parallel to scope.Tracker's frame
	// stack, mapping a declared variable's name to its id so idents resolve
	// to the innermost matching declaration.
	names []map[string]uint32

	currentReturnType *semtype.Type
	currentClosureID  uint32 // 0 when building a top-level function body
	captureStack      []captureFrame
}

// Build runs component D over a decoded input program, producing the
// SemProgram that feeds typeinfo/codegen/query/closure downstream.
//
// Mirrors original_source/compiler/src/semantics/mod.rs's top-level
// `analyze` entrypoint: declare every datasource/table/function signature
// before defining any function body, so forward references (mutual
// recursion, a function referencing a table declared later in the file)
// resolve correctly.
func Build(prog *astinput.Program) (*SemProgram, error) {
	b := &builder{
		datasources: symtab.NewTable[*Datasource](),
		tables:      symtab.NewTable[*Table](),
		structs:     symtab.NewTable[*Struct](),
		functions:   symtab.NewTable[*Function](),
		closures:    symtab.NewTable[*Closure](),
		variables:   symtab.NewTable[*Variable](),
		loopIDs:     symtab.NewIDGen(),
		scope:       scope.NewTracker(),
	}
	b.prog = &SemProgram{
		DatasourceByName: make(map[string]uint32),
		TableByName:      make(map[string]uint32),
		StructByName:     make(map[string]uint32),
		FunctionByName:   make(map[string]uint32),
	}

	if err := b.declareDatasources(prog.Datasources); err != nil {
		return nil, err
	}
	if err := b.prescanStructs(prog.Functions); err != nil {
		return nil, err
	}
	if err := b.declareTables(prog.Tables); err != nil {
		return nil, err
	}
	if err := b.declareFunctions(prog.Functions); err != nil {
		return nil, err
	}
	if err := b.defineFunctions(prog.Functions); err != nil {
		return nil, err
	}
	if err := b.resolveMain(); err != nil {
		return nil, err
	}
	b.materialize()
	return b.prog, nil
}

func (b *builder) declareDatasources(in []astinput.Datasource) error {
	for _, d := range in {
		if b.datasources.ContainsName(d.Name) {
			return qlerr.New(qlerr.DuplicateDatasourceDeclaration, d.Name)
		}
		id, _ := b.datasources.Insert(d.Name, nil)
		b.datasources.MutateByID(id, func(*Datasource) *Datasource {
			return &Datasource{ID: id, Name: d.Name, Readonly: d.Readonly}
		})
		b.prog.DatasourceByName[d.Name] = id
	}
	return nil
}

func (b *builder) declareTables(in []astinput.Table) error {
	for _, t := range in {
		if b.tables.ContainsName(t.Name) {
			return qlerr.New(qlerr.DuplicateTableDefinition, t.Name)
		}
		dsID, ok := b.datasources.IDByName(t.Datasource)
		if !ok {
			return qlerr.New(qlerr.UndefinedDatasource, t.Datasource)
		}

		fields := make(map[string]*semtype.Type, len(t.Columns))
		order := make([]string, 0, len(t.Columns))
		colIndex := make(map[string]int, len(t.Columns))
		for i, col := range t.Columns {
			ct, err := b.resolveTypeNode(&col.Type)
			if err != nil {
				return err
			}
			if !isPrimitiveColumnType(ct) {
				return qlerr.New(qlerr.NonPrimitiveColumnType, col.Name)
			}
			fields[col.Name] = ct
			order = append(order, col.Name)
			colIndex[col.Name] = i
		}

		rowStructName := t.Name
		structID, err := b.registerStruct(rowStructName, order, fields)
		if err != nil {
			return qlerr.New(qlerr.DuplicateTableDefinition, t.Name)
		}

		id, _ := b.tables.Insert(t.Name, nil)
		b.tables.MutateByID(id, func(*Table) *Table {
			return &Table{
				ID:           id,
				Name:         t.Name,
				DatasourceID: dsID,
				Readonly:     t.Readonly,
				StructID:     structID,
				ColumnIndex:  colIndex,
			}
		})
		b.prog.TableByName[t.Name] = id
	}
	return nil
}

// registerStruct inserts a new named struct shape, recording it in both the
// registry and the program's name index used by resolveTypeNode.
func (b *builder) registerStruct(name string, order []string, fields map[string]*semtype.Type) (uint32, error) {
	id, err := b.structs.Insert(name, nil)
	if err != nil {
		return 0, err
	}
	b.structs.MutateByID(id, func(*Struct) *Struct {
		return &Struct{ID: id, Name: name, FieldOrder: order, Fields: fields}
	})
	b.prog.StructByName[name] = id
	return id, nil
}

// isPrimitiveColumnType enforces §4.5's rule that a table column may only
// hold Integer, Bool, or String — never Array or struct.
func isPrimitiveColumnType(t *semtype.Type) bool {
	switch t.Tag() {
	case semtype.Integer, semtype.Bool, semtype.String:
		return true
	default:
		return false
	}
}

func (b *builder) declareFunctions(in []astinput.Function) error {
	for _, f := range in {
		if b.functions.ContainsName(f.Name) {
			return qlerr.New(qlerr.DuplicateFunctionDefinition, f.Name)
		}
		paramTypes := make([]*semtype.Type, len(f.Params))
		for i, p := range f.Params {
			pt, err := b.resolveTypeNode(&p.Type)
			if err != nil {
				return err
			}
			paramTypes[i] = pt
		}
		retType, err := b.resolveTypeNode(f.ReturnType)
		if err != nil {
			return err
		}
		id, _ := b.functions.Insert(f.Name, nil)
		b.functions.MutateByID(id, func(*Function) *Function {
			return &Function{ID: id, Name: f.Name, ParamTypes: paramTypes, ReturnType: retType}
		})
		b.prog.FunctionByName[f.Name] = id
	}
	return nil
}

func (b *builder) defineFunctions(in []astinput.Function) error {
	for _, f := range in {
		fnID, _ := b.functions.IDByName(f.Name)
		fn, _ := b.functions.GetByID(fnID)

		b.scope = scope.NewTracker()
		b.names = nil
		b.currentReturnType = fn.ReturnType
		b.currentClosureID = 0

		b.pushFrame(scope.Function)
		paramIDs := make([]uint32, len(f.Params))
		for i, p := range f.Params {
			varID := b.declareVariable(p.Name, fn.ParamTypes[i])
			paramIDs[i] = varID
		}

		body, err := b.buildBlock(f.Body)
		if err != nil {
			b.popFrame(false)
			return err
		}
		drops := b.popFrame(!body.Terminates)
		body.Statements = append(body.Statements, dropStmts(drops)...)

		if !body.Terminates {
			switch {
			case fn.ReturnType.Tag() == semtype.Void:
				body.Statements = append(body.Statements, Stmt{Kind: StmtReturn})
				body.Terminates = true
			case f.Name == "main":
				zero := &Expr{Kind: ExprIntLit, SemType: semtype.NewInteger(), Owned: Trivial, IntValue: 0}
				body.Statements = append(body.Statements, Stmt{Kind: StmtReturn, ReturnExpr: zero})
				body.Terminates = true
			default:
				return qlerr.New(qlerr.InexhaustiveReturnPaths, f.Name)
			}
		}

		fn.ParamIDs = paramIDs
		fn.Body = body
		b.functions.MutateByID(fnID, func(*Function) *Function { return fn })
	}
	return nil
}

// resolveMain locates the program's entrypoint function and enforces
// §4.7's main-signature rule: zero parameters, Integer return (the process
// exit code).
func (b *builder) resolveMain() error {
	id, ok := b.functions.IDByName("main")
	if !ok {
		return qlerr.New(qlerr.InvalidMainSignature, "main")
	}
	fn, _ := b.functions.GetByID(id)
	if len(fn.ParamTypes) != 0 {
		return qlerr.New(qlerr.InvalidMainSignature, "main takes no parameters")
	}
	switch fn.ReturnType.Tag() {
	case semtype.Integer:
	default:
		return qlerr.New(qlerr.InvalidMainSignature, "main must return int")
	}
	b.prog.MainFunctionID = id
	return nil
}

// materialize copies every registry's current id-keyed contents into the
// exported SemProgram snapshot; the name indices are maintained live (see
// registerStruct and the declare* functions) since resolveTypeNode needs
// them mid-pass, before a final snapshot would otherwise exist.
func (b *builder) materialize() {
	b.prog.Datasources = toMap(b.datasources)
	b.prog.Tables = toMap(b.tables)
	b.prog.Structs = toMap(b.structs)
	b.prog.Functions = toMap(b.functions)
	b.prog.Closures = toMap(b.closures)
	b.prog.Variables = toMap(b.variables)
}

func toMap[T any](t *symtab.Table[T]) map[uint32]T {
	out := make(map[uint32]T, t.Len())
	t.Each(func(id uint32, v T) { out[id] = v })
	return out
}
