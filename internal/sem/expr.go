package sem

import (
	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/semtype"
)

var builtinFunctions = map[string]struct {
	fn     BuiltinFunction
	params []*semtype.Type
	ret    func() *semtype.Type
}{
	"print_string":  {BuiltinPrintString, []*semtype.Type{semtype.NewString()}, semtype.NewVoid},
	"print_integer": {BuiltinPrintInteger, []*semtype.Type{semtype.NewInteger()}, semtype.NewVoid},
	"print_bool":    {BuiltinPrintBool, []*semtype.Type{semtype.NewBool()}, semtype.NewVoid},
	"input_integer": {BuiltinInputInteger, nil, semtype.NewInteger},
	"input_string":  {BuiltinInputString, nil, semtype.NewString},
}

// buildExpression lowers one AST expression, resolving identifiers against
// the active scope, running the type-unification rules of §4.1/§4.4, and
// returning a fully typed IR node. Grounded on
// original_source/compiler/src/semantics/{variables,binops,data,
// functions,closures}.rs, which this function's branches mirror one for
// one.
func (b *builder) buildExpression(e *astinput.Expression) (*Expr, error) {
	switch e.Kind {
	case astinput.ExprIntLit:
		return &Expr{Kind: ExprIntLit, SemType: semtype.NewInteger(), Owned: Trivial, IntValue: e.IntValue}, nil
	case astinput.ExprBoolLit:
		return &Expr{Kind: ExprBoolLit, SemType: semtype.NewBool(), Owned: Trivial, BoolValue: e.BoolValue}, nil
	case astinput.ExprStringLit:
		return &Expr{Kind: ExprStringLit, SemType: semtype.NewString(), Owned: Owned, StringValue: e.StringValue}, nil
	case astinput.ExprIdent:
		return b.buildIdent(e)
	case astinput.ExprArrayLit:
		return b.buildArrayLit(e)
	case astinput.ExprStructLit:
		return b.buildStructLit(e)
	case astinput.ExprFieldAccess:
		return b.buildFieldAccess(e)
	case astinput.ExprIndex:
		return b.buildIndex(e)
	case astinput.ExprBinary:
		return b.buildBinary(e)
	case astinput.ExprCompare:
		return b.buildCompare(e)
	case astinput.ExprCall:
		return b.buildCall(e)
	case astinput.ExprMethodCall:
		return b.buildMethodCall(e)
	case astinput.ExprClosure:
		return b.buildClosureExpr(e)
	case astinput.ExprQuery:
		return b.buildImmediateQuery(e)
	default:
		return nil, qlerr.Newf(qlerr.BuilderFailure, string(e.Kind), "unrecognized expression kind")
	}
}

func (b *builder) buildIdent(e *astinput.Expression) (*Expr, error) {
	if varID, frameIdx, ok := b.lookupVariableAt(e.Name); ok {
		varID = b.resolveCapture(varID, frameIdx, e.Name)
		v, _ := b.variables.GetByID(varID)
		owned := Borrowed
		if !v.SemType.CanBeOwned() {
			owned = Trivial
		}
		return &Expr{Kind: ExprVariable, SemType: v.SemType, Owned: owned, VariableID: varID}, nil
	}
	if fnID, ok := b.functions.IDByName(e.Name); ok {
		fn, _ := b.functions.GetByID(fnID)
		return &Expr{
			Kind:       ExprClosureRef,
			SemType:    semtype.NewCallable(fn.ParamTypes, fn.ReturnType),
			Owned:      Trivial,
			FunctionID: fnID,
		}, nil
	}
	return nil, qlerr.New(qlerr.UndefinedVariable, e.Name)
}

func (b *builder) buildArrayLit(e *astinput.Expression) (*Expr, error) {
	elems := make([]Expr, len(e.Elements))
	var elemType *semtype.Type
	for i := range e.Elements {
		el, err := b.buildExpression(&e.Elements[i])
		if err != nil {
			return nil, err
		}
		elems[i] = *el
		if elemType == nil {
			elemType = el.SemType
			continue
		}
		if !elemType.TryDowncast(el.SemType) && !el.SemType.TryDowncast(elemType) {
			return nil, qlerr.New(qlerr.HeterogeneousArray, "")
		}
	}
	if elemType == nil {
		elemType = semtype.NewAny()
	}
	return &Expr{Kind: ExprArrayLit, SemType: semtype.NewArray(elemType), Owned: Owned, Elements: elems}, nil
}

func (b *builder) buildStructLit(e *astinput.Expression) (*Expr, error) {
	fields := make(map[string]Expr, len(e.Fields))
	order := make([]string, 0, len(e.Fields))
	fieldTypes := make(map[string]*semtype.Type, len(e.Fields))
	for name, v := range e.Fields {
		v := v
		fe, err := b.buildExpression(&v)
		if err != nil {
			return nil, err
		}
		if _, dup := fields[name]; dup {
			return nil, qlerr.New(qlerr.DuplicateFieldInitialization, name)
		}
		fields[name] = *fe
		fieldTypes[name] = fe.SemType
		order = append(order, name)
	}

	if e.StructName == "" {
		return &Expr{
			Kind:         ExprStructLit,
			SemType:      semtype.NewAnonymousStruct(fieldTypes),
			Owned:        Owned,
			StructFields: fields,
			FieldOrder:   order,
		}, nil
	}

	s, ok := b.structs.GetByName(e.StructName)
	if !ok {
		return nil, qlerr.New(qlerr.UndefinedStruct, e.StructName)
	}
	// A field the prescan seeded as Any adopts this literal's field type.
	for name, ft := range fieldTypes {
		if col, ok := s.Fields[name]; ok && col.Tag() == semtype.Any {
			col.TryDowncast(ft)
		}
	}
	named := semtype.NewNamedStruct(s.ID, s.Name, s.Fields)
	anon := semtype.NewAnonymousStruct(fieldTypes)
	if !anon.TryDowncast(named) {
		return nil, qlerr.New(qlerr.IncompatibleStructInitialization, e.StructName)
	}
	return &Expr{
		Kind:         ExprStructLit,
		SemType:      named,
		Owned:        Owned,
		StructID:     s.ID,
		StructFields: fields,
		FieldOrder:   order,
	}, nil
}

func (b *builder) buildFieldAccess(e *astinput.Expression) (*Expr, error) {
	recv, err := b.buildExpression(e.Receiver)
	if err != nil {
		return nil, err
	}
	switch recv.SemType.Tag() {
	case semtype.NamedStruct:
		s, _ := b.structs.GetByID(recv.SemType.Kind().StructID)
		idx := -1
		for i, name := range s.FieldOrder {
			if name == e.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, qlerr.New(qlerr.UndefinedStructFieldAccess, e.Name)
		}
		ft := s.Fields[e.Name]
		owned := Borrowed
		if !ft.CanBeOwned() {
			owned = Trivial
		}
		return &Expr{
			Kind:       ExprFieldRead,
			SemType:    ft,
			Owned:      owned,
			StructExpr: recv,
			FieldIndex: uint32(idx),
		}, nil
	case semtype.AnonymousStruct:
		return nil, qlerr.New(qlerr.AnonymousStructFieldAccess, e.Name)
	default:
		return nil, qlerr.New(qlerr.NonStructFieldAccess, e.Name)
	}
}

func (b *builder) buildIndex(e *astinput.Expression) (*Expr, error) {
	arr, err := b.buildExpression(e.Receiver)
	if err != nil {
		return nil, err
	}
	if arr.SemType.Tag() != semtype.Array {
		return nil, qlerr.New(qlerr.NonArrayIndex, "")
	}
	idx, err := b.buildExpression(e.Index)
	if err != nil {
		return nil, err
	}
	if idx.SemType.Tag() != semtype.Integer {
		return nil, qlerr.New(qlerr.NonIntegralArrayIndex, "")
	}
	elemType := arr.SemType.Kind().Elem
	owned := Borrowed
	if !elemType.CanBeOwned() {
		owned = Trivial
	}
	return &Expr{Kind: ExprArrayIndex, SemType: elemType, Owned: owned, ArrayExpr: arr, IndexExpr: idx}, nil
}

func (b *builder) buildBinary(e *astinput.Expression) (*Expr, error) {
	left, err := b.buildExpression(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.buildExpression(e.Right)
	if err != nil {
		return nil, err
	}
	if left.SemType.Tag() != semtype.Integer || right.SemType.Tag() != semtype.Integer {
		return nil, qlerr.New(qlerr.IncompatibleOperands, e.Op)
	}
	var op ArithOp
	var kind ExprKind
	switch e.Op {
	case "+":
		op, kind = ArithAdd, ExprAdd
	case "-":
		op, kind = ArithSub, ExprSubtract
	default:
		return nil, qlerr.New(qlerr.IncompatibleOperands, e.Op)
	}
	return &Expr{Kind: kind, SemType: semtype.NewInteger(), Owned: Trivial, Left: left, Right: right, ArithOp: op}, nil
}

func (b *builder) buildCompare(e *astinput.Expression) (*Expr, error) {
	left, err := b.buildExpression(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.buildExpression(e.Right)
	if err != nil {
		return nil, err
	}
	var op CompareOp
	switch e.Op {
	case "==":
		op = CompareEq
	case "!=":
		op = CompareNe
	case "<":
		op = CompareLt
	case "<=":
		op = CompareLe
	case ">":
		op = CompareGt
	case ">=":
		op = CompareGe
	default:
		return nil, qlerr.New(qlerr.IncompatibleOperands, e.Op)
	}
	if op != CompareEq && op != CompareNe {
		if left.SemType.Tag() != semtype.Integer || right.SemType.Tag() != semtype.Integer {
			return nil, qlerr.New(qlerr.IncompatibleOperands, e.Op)
		}
	} else if !left.SemType.TryDowncast(right.SemType) && !right.SemType.TryDowncast(left.SemType) {
		return nil, qlerr.New(qlerr.IncompatibleOperands, e.Op)
	}
	return &Expr{Kind: ExprCompare, SemType: semtype.NewBool(), Owned: Trivial, Left: left, Right: right, CompareOp: op}, nil
}

func (b *builder) buildCall(e *astinput.Expression) (*Expr, error) {
	args := make([]Expr, len(e.Args))
	for i := range e.Args {
		a, err := b.buildExpression(&e.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = *a
	}

	if bi, ok := builtinFunctions[e.Name]; ok {
		if err := checkArgs(e.Name, bi.params, args); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprBuiltinCall, SemType: bi.ret(), Owned: Owned, IsBuiltin: true, Builtin: bi.fn, Args: args}, nil
	}

	if fnID, ok := b.functions.IDByName(e.Name); ok {
		fn, _ := b.functions.GetByID(fnID)
		if err := checkArgs(e.Name, fn.ParamTypes, args); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprDirectCall, SemType: fn.ReturnType, Owned: Owned, FunctionID: fnID, Args: args}, nil
	}

	if varID, ok := b.lookupVariable(e.Name); ok {
		v, _ := b.variables.GetByID(varID)
		if v.SemType.Tag() != semtype.Callable {
			return nil, qlerr.New(qlerr.NotCallable, e.Name)
		}
		k := v.SemType.Kind()
		if err := checkArgs(e.Name, k.Params, args); err != nil {
			return nil, err
		}
		callee := &Expr{Kind: ExprVariable, SemType: v.SemType, Owned: Borrowed, VariableID: varID}
		return &Expr{Kind: ExprIndirectCall, SemType: k.Return, Owned: Owned, CallExpr: callee, Args: args}, nil
	}

	return nil, qlerr.New(qlerr.UndefinedFunction, e.Name)
}

func checkArgs(name string, params []*semtype.Type, args []Expr) error {
	if len(params) != len(args) {
		return qlerr.New(qlerr.MismatchingCallArity, name)
	}
	for i, p := range params {
		if !p.TryDowncast(args[i].SemType) {
			return qlerr.New(qlerr.IncompatibleArgumentType, name)
		}
	}
	return nil
}

func (b *builder) buildMethodCall(e *astinput.Expression) (*Expr, error) {
	recv, err := b.buildExpression(e.Receiver)
	if err != nil {
		return nil, err
	}
	if recv.SemType.Tag() != semtype.Array {
		return nil, qlerr.New(qlerr.UndefinedMethod, e.Name)
	}
	elem := recv.SemType.Kind().Elem

	switch e.Name {
	case "length":
		return &Expr{Kind: ExprMethodCall, SemType: semtype.NewInteger(), Owned: Trivial, Receiver: recv, Method: MethodArrayLength}, nil
	case "append":
		if len(e.Args) != 1 {
			return nil, qlerr.New(qlerr.MismatchingCallArity, "append")
		}
		arg, err := b.buildExpression(&e.Args[0])
		if err != nil {
			return nil, err
		}
		if !elem.TryDowncast(arg.SemType) {
			return nil, qlerr.New(qlerr.IncompatibleArgumentType, "append")
		}
		return &Expr{Kind: ExprMethodCall, SemType: semtype.NewVoid(), Owned: Trivial, Receiver: recv, Method: MethodArrayAppend, Args: []Expr{*arg}}, nil
	case "pop":
		owned := Borrowed
		if !elem.CanBeOwned() {
			owned = Trivial
		}
		return &Expr{Kind: ExprMethodCall, SemType: elem, Owned: owned, Receiver: recv, Method: MethodArrayPop}, nil
	default:
		return nil, qlerr.New(qlerr.UndefinedMethod, e.Name)
	}
}
