package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/qlcompiler/qlc/internal/closure"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/query"
	"github.com/qlcompiler/qlc/internal/runtimeabi"
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// genStructLit allocates a runtime struct object sized and laid out per
// the struct's typeinfo global, then stores each field value at its
// computed offset via a byte-indexed GEP — matching structs.rs's
// "allocate, then initialize field by field" construction sequence.
func (e *Emitter) genStructLit(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	layout, ok := e.layouts[expr.StructID]
	if !ok {
		// Anonymous struct literal: has no struct id, so no layout/runtime
		// representation exists yet — it exists only as a type-checking
		// intermediate that must downcast to a named struct before it can
		// be constructed at runtime (§4.1 rule (e)).
		return nil, qlerr.New(qlerr.AnonymousStructFieldAccess, "")
	}
	obj := ctx.cur.NewCall(e.externs[runtimeabi.StructAlloc], e.typeInfoGlobals[expr.StructID])
	for name, fieldExpr := range expr.StructFields {
		fieldExpr := fieldExpr
		fl, ok := layout.FieldByName(name)
		if !ok {
			continue
		}
		v, err := e.genExpr(ctx, &fieldExpr)
		if err != nil {
			return nil, err
		}
		if gv := e.toGenValue(&fieldExpr, v); gv.NeedsAddRefOnCopy() {
			ctx.cur.NewCall(e.externs[runtimeabi.AddRef], v)
		}
		dst := e.fieldPointer(ctx, obj, fl.Offset, fl.Type)
		ctx.cur.NewStore(v, dst)
	}
	return obj, nil
}

// fieldPointer computes a pointer to a field fieldOffset bytes into obj via
// a byte-granularity GEP over obj's i8* base, then casts the result to a
// pointer of fieldType's own LLVM representation so the caller's
// load/store sees the right element type.
func (e *Emitter) fieldPointer(ctx *fnCtx, obj value.Value, fieldOffset int, fieldType *semtype.Type) value.Value {
	off := constant.NewInt(types.I64, int64(fieldOffset))
	raw := ctx.cur.NewGetElementPtr(types.I8, obj, off)
	elemTy := types.NewPointer(e.llvmType(fieldType))
	return ctx.cur.NewBitCast(raw, elemTy)
}

func (e *Emitter) genFieldRead(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	obj, err := e.genExpr(ctx, expr.StructExpr)
	if err != nil {
		return nil, err
	}
	structID := expr.StructExpr.SemType.Kind().StructID
	layout := e.layouts[structID]
	if int(expr.FieldIndex) >= len(layout.Fields) {
		return nil, qlerr.New(qlerr.UndefinedStructFieldAccess, "")
	}
	fl := layout.Fields[expr.FieldIndex]
	ptr := e.fieldPointer(ctx, obj, fl.Offset, fl.Type)
	return ctx.cur.NewLoad(e.llvmType(expr.SemType), ptr), nil
}

func (e *Emitter) genDirectCall(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	callee, ok := e.funcs[expr.FunctionID]
	if !ok {
		return nil, qlerr.New(qlerr.UndefinedFunction, "")
	}
	args, err := e.genArgs(ctx, expr.Args)
	if err != nil {
		return nil, err
	}
	args = append([]value.Value{constant.NewNull(ptrI8)}, args...)
	return ctx.cur.NewCall(callee, args...), nil
}

func (e *Emitter) genIndirectCall(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	callable, err := e.genExpr(ctx, expr.CallExpr)
	if err != nil {
		return nil, err
	}
	fnPtr := ctx.cur.NewExtractValue(callable, 0)
	ctxPtr := ctx.cur.NewExtractValue(callable, 1)
	args, err := e.genArgs(ctx, expr.Args)
	if err != nil {
		return nil, err
	}
	args = append([]value.Value{ctxPtr}, args...)
	return ctx.cur.NewCall(fnPtr, args...), nil
}

func (e *Emitter) genArgs(ctx *fnCtx, args []sem.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(args))
	for i := range args {
		v, err := e.genExpr(ctx, &args[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Emitter) genBuiltinCall(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	args, err := e.genArgs(ctx, expr.Args)
	if err != nil {
		return nil, err
	}
	var symbol string
	switch expr.Builtin {
	case sem.BuiltinPrintString:
		symbol = runtimeabi.PrintString
	case sem.BuiltinPrintInteger:
		symbol = runtimeabi.PrintInteger
	case sem.BuiltinPrintBool:
		symbol = runtimeabi.PrintBool
	case sem.BuiltinInputInteger:
		symbol = runtimeabi.InputInteger
	case sem.BuiltinInputString:
		symbol = runtimeabi.InputString
	default:
		return nil, qlerr.Newf(qlerr.BuilderFailure, "", "codegen: unrecognized builtin %d", expr.Builtin)
	}
	return ctx.cur.NewCall(e.externs[symbol], args...), nil
}

func (e *Emitter) genMethodCall(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	recv, err := e.genExpr(ctx, expr.Receiver)
	if err != nil {
		return nil, err
	}
	switch expr.Method {
	case sem.MethodArrayLength:
		return ctx.cur.NewCall(e.externs[runtimeabi.ArrayLength], recv), nil
	case sem.MethodArrayAppend:
		el, err := e.genExpr(ctx, &expr.Args[0])
		if err != nil {
			return nil, err
		}
		boxed := e.toHandle(ctx, el, expr.Args[0].SemType)
		return ctx.cur.NewCall(e.externs[runtimeabi.ArrayAppend], recv, boxed), nil
	case sem.MethodArrayPop:
		handle := ctx.cur.NewCall(e.externs[runtimeabi.ArrayPop], recv)
		return e.fromHandle(ctx, handle, expr.SemType), nil
	default:
		return nil, qlerr.Newf(qlerr.BuilderFailure, "", "codegen: unrecognized method %d", expr.Method)
	}
}

// genClosureRef builds a callable value: a direct function reference gets
// a null context pointer and (if the function is never a closure) no
// statement slot; an actual closure literal allocates its capture record
// and stores each captured value into it at construction time.
func (e *Emitter) genClosureRef(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	if expr.ClosureID == 0 {
		// Bare function reference (an ident naming a top-level function).
		fn := e.funcs[expr.FunctionID]
		return e.buildCallableRecord(ctx, fn, constant.NewNull(ptrI8), nil), nil
	}

	c := e.prog.Closures[expr.ClosureID]
	fn, err := e.emitClosureFunc(expr.ClosureID, c)
	if err != nil {
		return nil, err
	}
	layout := closure.BuildCaptureLayout(c, e.prog)
	ctxObj := ctx.cur.NewCall(e.externs[runtimeabi.StructAlloc], constant.NewNull(ptrI8))
	for _, fl := range layout.Fields {
		v := e.prog.Variables[fl.OuterVarID]
		loaded := ctx.cur.NewLoad(e.llvmType(v.SemType), ctx.vars[fl.OuterVarID])
		if v.SemType.CanBeOwned() {
			ctx.cur.NewCall(e.externs[runtimeabi.AddRef], loaded)
		}
		dst := e.fieldPointer(ctx, ctxObj, fl.Offset, v.SemType)
		ctx.cur.NewStore(loaded, dst)
	}

	var stmtPtr value.Value
	abi := closure.BuildABI(c)
	if abi.HasStatementSlot {
		plan, err := query.Build(c.Body.Query, e.prog)
		if err != nil {
			return nil, err
		}
		sql := e.internString(plan.SQL)
		sqlPtr := ctx.cur.NewGetElementPtr(sql.ContentType, sql, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
		stmtPtr = ctx.cur.NewCall(e.externs[runtimeabi.QueryPrepare], sqlPtr)
	}
	return e.buildCallableRecord(ctx, fn, ctxObj, stmtPtr), nil
}

func (e *Emitter) buildCallableRecord(ctx *fnCtx, fn value.Value, ctxPtr value.Value, stmtPtr value.Value) value.Value {
	// The callable's three words are carried as a struct value built field
	// by field via insertvalue rather than a heap allocation, since a
	// closure reference is always immediately stored into a variable or
	// passed as an argument, never mutated in place.
	recordTy := types.NewStruct(ptrI8, ptrI8, ptrI8)
	rec := value.Value(constant.NewZeroInitializer(recordTy))
	rec = ctx.cur.NewInsertValue(rec, fn, 0)
	rec = ctx.cur.NewInsertValue(rec, ctxPtr, 1)
	if stmtPtr != nil {
		rec = ctx.cur.NewInsertValue(rec, stmtPtr, 2)
	}
	return rec
}

// genQuery emits the prepare/bind/execute (or step-loop) sequence for a
// query used directly as an expression. Mirrors
// original_source/compiler/src/codegen/mod.rs's emit_query.
func (e *Emitter) genQuery(ctx *fnCtx, q *sem.Query) (value.Value, error) {
	plan, err := query.Build(q, e.prog)
	if err != nil {
		return nil, err
	}
	sql := e.internString(plan.SQL)
	sqlPtr := ctx.cur.NewGetElementPtr(sql.ContentType, sql, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))

	// Insert's plan carries no per-param Value (q.Value is one struct-typed
	// expression, not a per-column list), so its bind values come from the
	// inserted struct's own fields instead of evaluating plan.Params[i].Value.
	// A bulk insert (q.Value an array of row structs) prepares and executes
	// the statement once per element instead of once for the whole query.
	if q.Kind == sem.QueryInsert {
		if q.Value.SemType.Tag() == semtype.Array {
			return e.genBulkInsert(ctx, q, plan, sqlPtr)
		}
		stmt := ctx.cur.NewCall(e.externs[runtimeabi.QueryPrepare], sqlPtr)
		obj, err := e.genExpr(ctx, q.Value)
		if err != nil {
			return nil, err
		}
		e.bindInsertParamsForRow(ctx, q, plan, stmt, obj)
		count := ctx.cur.NewCall(e.externs[runtimeabi.QueryExecute], stmt)
		ctx.cur.NewCall(e.externs[runtimeabi.QueryFinalize], stmt)
		return count, nil
	}

	stmt := ctx.cur.NewCall(e.externs[runtimeabi.QueryPrepare], sqlPtr)

	for _, p := range plan.Params {
		v, err := e.genExpr(ctx, p.Value)
		if err != nil {
			return nil, err
		}
		pos := constant.NewInt(types.I64, int64(p.Position))
		switch p.Kind {
		case query.BindInteger:
			ctx.cur.NewCall(e.externs[runtimeabi.QueryBindInteger], stmt, pos, v)
		case query.BindString:
			ctx.cur.NewCall(e.externs[runtimeabi.QueryBindString], stmt, pos, v)
		case query.BindBool:
			ctx.cur.NewCall(e.externs[runtimeabi.QueryBindBool], stmt, pos, v)
		}
	}

	if plan.IsSelect {
		arr := ctx.cur.NewCall(e.externs[runtimeabi.ArrayNew], e.typeInfoGlobals[plan.ResultStructID])
		e.emitSelectLoop(ctx, stmt, arr)
		ctx.cur.NewCall(e.externs[runtimeabi.QueryFinalize], stmt)
		return arr, nil
	}
	count := ctx.cur.NewCall(e.externs[runtimeabi.QueryExecute], stmt)
	ctx.cur.NewCall(e.externs[runtimeabi.QueryFinalize], stmt)
	return count, nil
}

// bindInsertParamsForRow binds each plan parameter by reading the
// corresponding field off obj (an inserted row struct) at its typeinfo
// offset, in the same field order plan.Build used to number placeholders.
func (e *Emitter) bindInsertParamsForRow(ctx *fnCtx, q *sem.Query, plan *query.Plan, stmt, obj value.Value) {
	table := e.prog.Tables[q.TableID]
	layout := e.layouts[table.StructID]
	for i, p := range plan.Params {
		fl := layout.Fields[i]
		ptr := e.fieldPointer(ctx, obj, fl.Offset, fl.Type)
		v := ctx.cur.NewLoad(e.llvmType(fl.Type), ptr)
		pos := constant.NewInt(types.I64, int64(p.Position))
		switch p.Kind {
		case query.BindInteger:
			ctx.cur.NewCall(e.externs[runtimeabi.QueryBindInteger], stmt, pos, v)
		case query.BindString:
			ctx.cur.NewCall(e.externs[runtimeabi.QueryBindString], stmt, pos, v)
		case query.BindBool:
			ctx.cur.NewCall(e.externs[runtimeabi.QueryBindBool], stmt, pos, v)
		}
	}
}

// genBulkInsert handles an Insert whose value is an array of row structs
// (§4.5's "either the row struct type or an array thereof"): it walks the
// array at runtime, re-preparing and executing the same SQL text once per
// element, and returns the summed affected-row count.
func (e *Emitter) genBulkInsert(ctx *fnCtx, q *sem.Query, plan *query.Plan, sqlPtr value.Value) (value.Value, error) {
	arr, err := e.genExpr(ctx, q.Value)
	if err != nil {
		return nil, err
	}
	elemType := q.Value.SemType.Kind().Elem

	idxPtr := ctx.cur.NewAlloca(types.I64)
	ctx.cur.NewStore(constant.NewInt(types.I64, 0), idxPtr)
	totalPtr := ctx.cur.NewAlloca(types.I64)
	ctx.cur.NewStore(constant.NewInt(types.I64, 0), totalPtr)
	length := ctx.cur.NewCall(e.externs[runtimeabi.ArrayLength], arr)

	condBB := ctx.f.NewBlock(ctx.fresh("insert.cond"))
	bodyBB := ctx.f.NewBlock(ctx.fresh("insert.body"))
	doneBB := ctx.f.NewBlock(ctx.fresh("insert.done"))

	ctx.cur.NewBr(condBB)
	ctx.cur = condBB
	idx := ctx.cur.NewLoad(types.I64, idxPtr)
	cond := ctx.cur.NewICmp(enum.IPredSLT, idx, length)
	ctx.cur.NewCondBr(cond, bodyBB, doneBB)

	ctx.cur = bodyBB
	handle := ctx.cur.NewCall(e.externs[runtimeabi.ArrayGet], arr, idx)
	obj := e.fromHandle(ctx, handle, elemType)

	stmt := ctx.cur.NewCall(e.externs[runtimeabi.QueryPrepare], sqlPtr)
	e.bindInsertParamsForRow(ctx, q, plan, stmt, obj)
	count := ctx.cur.NewCall(e.externs[runtimeabi.QueryExecute], stmt)
	ctx.cur.NewCall(e.externs[runtimeabi.QueryFinalize], stmt)

	total := ctx.cur.NewLoad(types.I64, totalPtr)
	ctx.cur.NewStore(ctx.cur.NewAdd(total, count), totalPtr)
	nextIdx := ctx.cur.NewAdd(idx, constant.NewInt(types.I64, 1))
	ctx.cur.NewStore(nextIdx, idxPtr)
	ctx.cur.NewBr(condBB)

	ctx.cur = doneBB
	return ctx.cur.NewLoad(types.I64, totalPtr), nil
}

// emitSelectLoop builds the step/column-row/append loop that drains a
// prepared Select statement into arr, one row at a time.
func (e *Emitter) emitSelectLoop(ctx *fnCtx, stmt, arr value.Value) {
	stepBB := ctx.f.NewBlock(ctx.fresh("query.step"))
	rowBB := ctx.f.NewBlock(ctx.fresh("query.row"))
	doneBB := ctx.f.NewBlock(ctx.fresh("query.done"))

	ctx.cur.NewBr(stepBB)
	ctx.cur = stepBB
	hasRow := ctx.cur.NewCall(e.externs[runtimeabi.QueryStep], stmt)
	ctx.cur.NewCondBr(hasRow, rowBB, doneBB)

	ctx.cur = rowBB
	row := ctx.cur.NewCall(e.externs[runtimeabi.QueryColumnRow], stmt, arr)
	ctx.cur.NewCall(e.externs[runtimeabi.ArrayAppend], arr, row)
	ctx.cur.NewBr(stepBB)

	ctx.cur = doneBB
}

// emitClosureFunc emits a closure's body as an ordinary LLVM function
// taking the capture record as an extra leading parameter, caching the
// result so a closure literal evaluated inside a loop doesn't redefine its
// body function on every iteration. A query-bodied closure (§4.6) has no
// procedural statements at all: its single expression is the query itself,
// so its function body is just that query's prepare/bind/execute sequence
// followed by a return.
func (e *Emitter) emitClosureFunc(id uint32, c *sem.Closure) (*ir.Func, error) {
	key := id + closureFuncIDOffset
	if fn, ok := e.funcs[key]; ok {
		return fn, nil
	}

	retType := e.llvmType(c.ReturnType)
	params := make([]*ir.Param, 0, len(c.ParamTypes)+1)
	params = append(params, ir.NewParam("captures", ptrI8))
	for _, pt := range c.ParamTypes {
		params = append(params, ir.NewParam("", e.llvmType(pt)))
	}
	fn := e.m.NewFunc(fmt.Sprintf("closure.%d", c.ID), retType, params...)
	e.funcs[key] = fn

	entry := fn.NewBlock("entry")
	fctx := &fnCtx{f: fn, cur: entry, vars: make(map[uint32]*ir.InstAlloca)}

	body := c.Body.Block
	for _, varID := range collectVarIDs(body, c.ParamIDs) {
		v := e.prog.Variables[varID]
		fctx.vars[varID] = entry.NewAlloca(e.llvmType(v.SemType))
	}
	for i, paramID := range c.ParamIDs {
		entry.NewStore(fn.Params[i+1], fctx.vars[paramID])
	}

	layout := closure.BuildCaptureLayout(c, e.prog)
	captureParam := fn.Params[0]
	for _, fl := range layout.Fields {
		v := e.prog.Variables[fl.InnerVarID]
		slot, ok := fctx.vars[fl.InnerVarID]
		if !ok {
			slot = entry.NewAlloca(e.llvmType(v.SemType))
			fctx.vars[fl.InnerVarID] = slot
		}
		src := e.fieldPointer(fctx, captureParam, fl.Offset, v.SemType)
		loaded := entry.NewLoad(e.llvmType(v.SemType), src)
		entry.NewStore(loaded, slot)
	}

	if c.Body.IsQuery {
		v, err := e.genQuery(fctx, c.Body.Query)
		if err != nil {
			return nil, err
		}
		fctx.cur.NewRet(v)
		return fn, nil
	}

	if err := e.genBlockBody(fctx, &body); err != nil {
		return nil, err
	}
	if fctx.cur.Term == nil {
		if retType == types.Void {
			fctx.cur.NewRet(nil)
		} else {
			fctx.cur.NewUnreachable()
		}
	}
	return fn, nil
}

// closureFuncIDOffset keeps closure-body entries in e.funcs out of the
// plain function id space: a closure's key is its closure id plus this
// offset.
const closureFuncIDOffset = 1 << 30
