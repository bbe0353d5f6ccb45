package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/qlcompiler/qlc/internal/genvalue"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/runtimeabi"
	"github.com/qlcompiler/qlc/internal/sem"
)

// toGenValue pairs a freshly emitted LLVM value with the ownership
// bookkeeping internal/genvalue decides add_ref/remove_ref calls from.
func (e *Emitter) toGenValue(expr *sem.Expr, v value.Value) genvalue.GenValue {
	owned := genvalue.Trivial
	switch expr.Owned {
	case sem.Owned:
		owned = genvalue.Owned
	case sem.Borrowed:
		owned = genvalue.Borrowed
	}
	return genvalue.New(v, expr.SemType, owned)
}

// fnCtx is one function's emission state: the function being built, the
// block instructions currently append to, each variable's stack slot, and
// the active loop targets for break/continue resolution.
type fnCtx struct {
	f        *ir.Func
	cur      *ir.Block
	vars     map[uint32]*ir.InstAlloca
	loops    []loopTargets
	labelSeq int
}

type loopTargets struct {
	id        uint32
	continueBB *ir.Block
	breakBB    *ir.Block
}

func (c *fnCtx) fresh(base string) string {
	c.labelSeq++
	return fmt.Sprintf("%s.%d", base, c.labelSeq)
}

// Build runs component G end to end: every function in prog is emitted in
// map iteration order (order doesn't affect correctness — every call site
// resolves by id, not by textual position), then the module is rendered to
// LLVM text.
func Build(prog *sem.SemProgram) (string, error) {
	e := NewEmitter(prog)
	if err := e.emitAllFunctions(); err != nil {
		return "", err
	}
	e.emitMainTrampoline()
	return e.String(), nil
}

func (e *Emitter) emitAllFunctions() error {
	// Declare every function's signature first so forward/mutually
	// recursive direct calls resolve regardless of emission order. Every
	// function — plain or closure body — takes a leading i8* context
	// parameter (null and unused for a plain top-level function) so an
	// ExprIndirectCall can invoke any callable's function pointer uniformly,
	// without needing to know at the call site whether it closed over
	// anything.
	for id, fn := range e.prog.Functions {
		name := fn.Name
		if id == e.prog.MainFunctionID {
			name = runtimeabi.UserMainSymbol
		}
		params := make([]*ir.Param, len(fn.ParamTypes)+1)
		params[0] = ir.NewParam("ctx", ptrI8)
		for i, pt := range fn.ParamTypes {
			params[i+1] = ir.NewParam("", e.llvmType(pt))
		}
		e.funcs[id] = e.m.NewFunc(name, e.llvmType(fn.ReturnType), params...)
	}
	for id, fn := range e.prog.Functions {
		if err := e.emitFunctionBody(id, fn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitFunctionBody(id uint32, fn *sem.Function) error {
	f := e.funcs[id]
	entry := f.NewBlock("entry")
	ctx := &fnCtx{f: f, cur: entry, vars: make(map[uint32]*ir.InstAlloca)}

	for _, varID := range collectVarIDs(fn.Body, fn.ParamIDs) {
		v := e.prog.Variables[varID]
		ctx.vars[varID] = entry.NewAlloca(e.llvmType(v.SemType))
	}
	for i, paramID := range fn.ParamIDs {
		entry.NewStore(f.Params[i+1], ctx.vars[paramID])
	}

	if err := e.genBlockBody(ctx, &fn.Body); err != nil {
		return err
	}
	if ctx.cur.Term == nil {
		if f.Sig.RetType == types.Void {
			ctx.cur.NewRet(nil)
		} else {
			ctx.cur.NewUnreachable()
		}
	}
	return nil
}

// collectVarIDs walks a function body gathering every distinct variable id
// a VarDecl, parameter, or Drop statement mentions, so emitFunctionBody can
// allocate every stack slot up front in LLVM's usual "alloca everything in
// the entry block" style.
func collectVarIDs(b sem.Block, paramIDs []uint32) []uint32 {
	seen := make(map[uint32]bool)
	var order []uint32
	add := func(id uint32) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, id := range paramIDs {
		add(id)
	}
	var walkBlock func(sem.Block)
	var walkStmt func(sem.Stmt)
	walkStmt = func(s sem.Stmt) {
		switch s.Kind {
		case sem.StmtVarDecl:
			add(s.VarID)
		case sem.StmtDrop:
			add(s.DropVarID)
		case sem.StmtIf:
			for _, br := range s.Branches {
				walkBlock(br.Body)
			}
			if s.Else != nil {
				walkBlock(*s.Else)
			}
		case sem.StmtLoop:
			if s.Body != nil {
				walkBlock(*s.Body)
			}
		}
	}
	walkBlock = func(blk sem.Block) {
		for _, s := range blk.Statements {
			walkStmt(s)
		}
	}
	walkBlock(b)
	return order
}

// genBlockBody emits every statement of blk in order, stopping after the
// first statement that terminates control (return/break/continue) since
// sem's reachability pruning guarantees nothing legitimate follows it.
func (e *Emitter) genBlockBody(ctx *fnCtx, blk *sem.Block) error {
	for i := range blk.Statements {
		done, err := e.genStmt(ctx, &blk.Statements[i])
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return nil
}

// genStmt emits one IR statement, returning true if it terminated the
// current block (so the caller stops emitting into it).
func (e *Emitter) genStmt(ctx *fnCtx, s *sem.Stmt) (bool, error) {
	switch s.Kind {
	case sem.StmtVarDecl, sem.StmtVarAssign:
		v, err := e.genExpr(ctx, s.Init)
		if err != nil {
			return false, err
		}
		if gv := e.toGenValue(s.Init, v); gv.NeedsAddRefOnCopy() {
			ctx.cur.NewCall(e.externs[runtimeabi.AddRef], v)
		}
		ctx.cur.NewStore(v, ctx.vars[s.VarID])
		return false, nil
	case sem.StmtExprKind:
		_, err := e.genExpr(ctx, s.Expr)
		return false, err
	case sem.StmtIf:
		return false, e.genIf(ctx, s)
	case sem.StmtLoop:
		return false, e.genLoop(ctx, s)
	case sem.StmtReturn:
		if s.ReturnExpr == nil {
			ctx.cur.NewRet(nil)
			return true, nil
		}
		v, err := e.genExpr(ctx, s.ReturnExpr)
		if err != nil {
			return false, err
		}
		ctx.cur.NewRet(v)
		return true, nil
	case sem.StmtBreak:
		target := ctx.findLoop(s.LoopID)
		ctx.cur.NewBr(target.breakBB)
		return true, nil
	case sem.StmtContinue:
		target := ctx.findLoop(s.LoopID)
		ctx.cur.NewBr(target.continueBB)
		return true, nil
	case sem.StmtDrop:
		return false, e.genDrop(ctx, s.DropVarID)
	default:
		return false, qlerr.Newf(qlerr.BuilderFailure, "", "codegen: unrecognized statement kind %d", s.Kind)
	}
}

func (ctx *fnCtx) findLoop(id uint32) loopTargets {
	for i := len(ctx.loops) - 1; i >= 0; i-- {
		if ctx.loops[i].id == id {
			return ctx.loops[i]
		}
	}
	return loopTargets{}
}

// genDrop emits a conditional remove_ref: every drop target's type may not
// carry ownership (a Trivial int/bool var still gets a Drop statement from
// internal/sem only when CanBeOwned, so in practice this always fires on a
// pointer-represented value, but the load-then-call stays simple either
// way).
func (e *Emitter) genDrop(ctx *fnCtx, varID uint32) error {
	v := e.prog.Variables[varID]
	if !v.SemType.CanBeOwned() {
		return nil
	}
	slot := ctx.vars[varID]
	loaded := ctx.cur.NewLoad(e.llvmType(v.SemType), slot)
	ctx.cur.NewCall(e.externs[runtimeabi.RemoveRef], loaded)
	return nil
}

func (e *Emitter) genIf(ctx *fnCtx, s *sem.Stmt) error {
	n := len(s.Branches)
	thenBlocks := make([]*ir.Block, n)
	testBlocks := make([]*ir.Block, n)
	testBlocks[0] = ctx.cur
	for i := 0; i < n; i++ {
		thenBlocks[i] = ctx.f.NewBlock(ctx.fresh("if.then"))
		if i > 0 {
			testBlocks[i] = ctx.f.NewBlock(ctx.fresh("if.elif"))
		}
	}
	var elseBB *ir.Block
	if s.Else != nil {
		elseBB = ctx.f.NewBlock(ctx.fresh("if.else"))
	}
	mergeBB := ctx.f.NewBlock(ctx.fresh("if.end"))
	needsMerge := false

	for i := 0; i < n; i++ {
		ctx.cur = testBlocks[i]
		cond, err := e.genExpr(ctx, &s.Branches[i].Condition)
		if err != nil {
			return err
		}
		falseTarget := mergeBB
		switch {
		case i+1 < n:
			falseTarget = testBlocks[i+1]
		case elseBB != nil:
			falseTarget = elseBB
		}
		ctx.cur.NewCondBr(cond, thenBlocks[i], falseTarget)

		ctx.cur = thenBlocks[i]
		if err := e.genBlockBody(ctx, &s.Branches[i].Body); err != nil {
			return err
		}
		if !s.Branches[i].Body.Terminates {
			ctx.cur.NewBr(mergeBB)
			needsMerge = true
		}
	}

	if elseBB != nil {
		ctx.cur = elseBB
		if err := e.genBlockBody(ctx, s.Else); err != nil {
			return err
		}
		if !s.Else.Terminates {
			ctx.cur.NewBr(mergeBB)
			needsMerge = true
		}
	} else {
		needsMerge = true
	}

	if !needsMerge {
		mergeBB.NewUnreachable()
	}
	ctx.cur = mergeBB
	return nil
}

func (e *Emitter) genLoop(ctx *fnCtx, s *sem.Stmt) error {
	condBB := ctx.f.NewBlock(ctx.fresh("loop.cond"))
	bodyBB := ctx.f.NewBlock(ctx.fresh("loop.body"))
	endBB := ctx.f.NewBlock(ctx.fresh("loop.end"))

	ctx.cur.NewBr(condBB)
	ctx.cur = condBB
	if s.Cond != nil {
		cond, err := e.genExpr(ctx, s.Cond)
		if err != nil {
			return err
		}
		ctx.cur.NewCondBr(cond, bodyBB, endBB)
	} else {
		ctx.cur.NewBr(bodyBB)
	}

	ctx.loops = append(ctx.loops, loopTargets{id: s.LoopID, continueBB: condBB, breakBB: endBB})
	ctx.cur = bodyBB
	if err := e.genBlockBody(ctx, s.Body); err != nil {
		return err
	}
	if !s.Body.Terminates {
		ctx.cur.NewBr(condBB)
	}
	ctx.loops = ctx.loops[:len(ctx.loops)-1]
	ctx.cur = endBB
	return nil
}

// emitMainTrampoline emits the process "main" the linker looks for: it
// sequences runtime init, the user's renamed entrypoint, and runtime
// shutdown around whatever exit code the user's main produced (0 if the
// user's main returns void). Mirrors
// original_source/compiler/src/codegen/mod.rs's emit_main.
func (e *Emitter) emitMainTrampoline() {
	userMain := e.funcs[e.prog.MainFunctionID]
	trampoline := e.m.NewFunc("main", types.I32)
	entry := trampoline.NewBlock("entry")
	entry.NewCall(e.externs[runtimeabi.RuntimeInit])

	nullCtx := constant.NewNull(ptrI8)
	var exitCode value.Value
	if userMain.Sig.RetType == types.Void {
		entry.NewCall(userMain, nullCtx)
		exitCode = constant.NewInt(types.I32, 0)
	} else {
		ret := entry.NewCall(userMain, nullCtx)
		exitCode = entry.NewTrunc(ret, types.I32)
	}
	entry.NewCall(e.externs[runtimeabi.RuntimeExit])
	entry.NewRet(exitCode)
}
