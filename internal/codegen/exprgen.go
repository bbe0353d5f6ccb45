package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/runtimeabi"
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// genExpr lowers one semantic IR expression into the LLVM value it
// evaluates to. There is no short-circuiting logical operator in the
// grammar, so most expressions just append instructions to ctx.cur; the
// exception is a query (a Select's row loop, a bulk Insert's per-row
// loop), which leaves ctx.cur at the block after its loop.
func (e *Emitter) genExpr(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	switch expr.Kind {
	case sem.ExprIntLit:
		return constant.NewInt(types.I64, expr.IntValue), nil
	case sem.ExprBoolLit:
		return constant.NewBool(expr.BoolValue), nil
	case sem.ExprStringLit:
		return e.genStringLit(ctx, expr.StringValue)
	case sem.ExprVariable:
		v := e.prog.Variables[expr.VariableID]
		return ctx.cur.NewLoad(e.llvmType(v.SemType), ctx.vars[expr.VariableID]), nil
	case sem.ExprAdd:
		return e.genArith(ctx, expr, true)
	case sem.ExprSubtract:
		return e.genArith(ctx, expr, false)
	case sem.ExprCompare:
		return e.genCompare(ctx, expr)
	case sem.ExprArrayLit:
		return e.genArrayLit(ctx, expr)
	case sem.ExprArrayIndex:
		return e.genArrayIndex(ctx, expr)
	case sem.ExprStructLit:
		return e.genStructLit(ctx, expr)
	case sem.ExprFieldRead:
		return e.genFieldRead(ctx, expr)
	case sem.ExprDirectCall:
		return e.genDirectCall(ctx, expr)
	case sem.ExprIndirectCall:
		return e.genIndirectCall(ctx, expr)
	case sem.ExprBuiltinCall:
		return e.genBuiltinCall(ctx, expr)
	case sem.ExprMethodCall:
		return e.genMethodCall(ctx, expr)
	case sem.ExprClosureRef:
		return e.genClosureRef(ctx, expr)
	case sem.ExprImmediateQuery:
		return e.genQuery(ctx, expr.Query)
	default:
		return nil, qlerr.Newf(qlerr.BuilderFailure, "", "codegen: unrecognized expression kind %d", expr.Kind)
	}
}

func (e *Emitter) genStringLit(ctx *fnCtx, s string) (value.Value, error) {
	g := e.internString(s)
	ptr := ctx.cur.NewGetElementPtr(g.ContentType, g, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	length := constant.NewInt(types.I64, int64(len(s)))
	return ctx.cur.NewCall(e.externs[runtimeabi.StringNew], ptr, length), nil
}

func (e *Emitter) genArith(ctx *fnCtx, expr *sem.Expr, add bool) (value.Value, error) {
	l, err := e.genExpr(ctx, expr.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.genExpr(ctx, expr.Right)
	if err != nil {
		return nil, err
	}
	if add {
		return ctx.cur.NewAdd(l, r), nil
	}
	return ctx.cur.NewSub(l, r), nil
}

var comparePreds = map[sem.CompareOp]enum.IPred{
	sem.CompareEq: enum.IPredEQ,
	sem.CompareNe: enum.IPredNE,
	sem.CompareLt: enum.IPredSLT,
	sem.CompareLe: enum.IPredSLE,
	sem.CompareGt: enum.IPredSGT,
	sem.CompareGe: enum.IPredSGE,
}

func (e *Emitter) genCompare(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	l, err := e.genExpr(ctx, expr.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.genExpr(ctx, expr.Right)
	if err != nil {
		return nil, err
	}
	return ctx.cur.NewICmp(comparePreds[expr.CompareOp], l, r), nil
}

// genArrayLit allocates a runtime array and appends each element in
// order. The element typeinfo argument is a null pointer for this
// release: only the runtime's element-kind tag (derived from the
// element's SemType, which the array carries as part of its own typeinfo
// once constructed) distinguishes owned from trivial elements, so the
// compiler only needs to supply element values here, not a type
// descriptor per append.
func (e *Emitter) genArrayLit(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	arr := ctx.cur.NewCall(e.externs[runtimeabi.ArrayNew], constant.NewNull(ptrI8))
	for i := range expr.Elements {
		el, err := e.genExpr(ctx, &expr.Elements[i])
		if err != nil {
			return nil, err
		}
		boxed := e.toHandle(ctx, el, expr.Elements[i].SemType)
		ctx.cur.NewCall(e.externs[runtimeabi.ArrayAppend], arr, boxed)
	}
	return arr, nil
}

func (e *Emitter) genArrayIndex(ctx *fnCtx, expr *sem.Expr) (value.Value, error) {
	arr, err := e.genExpr(ctx, expr.ArrayExpr)
	if err != nil {
		return nil, err
	}
	idx, err := e.genExpr(ctx, expr.IndexExpr)
	if err != nil {
		return nil, err
	}
	handle := ctx.cur.NewCall(e.externs[runtimeabi.ArrayGet], arr, idx)
	return e.fromHandle(ctx, handle, expr.SemType), nil
}

// toHandle widens a primitive value to the i8*-sized handle an array slot
// stores (pointer-represented values pass through unchanged); fromHandle
// is its inverse on read. This boxing is a deliberate simplification of
// the runtime's tagged-value representation for this release — see
// DESIGN.md.
func (e *Emitter) toHandle(ctx *fnCtx, v value.Value, t *semtype.Type) value.Value {
	if needsBoxing(t) {
		return ctx.cur.NewIntToPtr(v, ptrI8)
	}
	return v
}

func (e *Emitter) fromHandle(ctx *fnCtx, v value.Value, t *semtype.Type) value.Value {
	if needsBoxing(t) {
		return ctx.cur.NewPtrToInt(v, e.llvmType(t))
	}
	return v
}

// needsBoxing reports whether t's LLVM representation is narrower than a
// pointer and must be boxed to travel through a generic i8* array slot.
func needsBoxing(t *semtype.Type) bool {
	switch t.Tag() {
	case semtype.Integer, semtype.Bool:
		return true
	default:
		return false
	}
}
