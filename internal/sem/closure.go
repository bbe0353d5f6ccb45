package sem

import (
	"github.com/qlcompiler/qlc/internal/astinput"
	"github.com/qlcompiler/qlc/internal/qlerr"
	"github.com/qlcompiler/qlc/internal/scope"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// captureFrame tracks, for the closure currently being built, the lexical
// frame index its own parameters live in (variables resolved at a shallower
// index are free variables, captured from the enclosing scope) and the
// capture list accumulated so far.
type captureFrame struct {
	boundary int
	outerToInner map[uint32]uint32
	order        []CapturePair
}

// resolveCapture rewrites a variable resolved outside the active closure's
// own frame into a per-closure capture, registering it at most once.
// Mirrors original_source/compiler/src/semantics/closures.rs's
// capture-on-first-use discipline: a closure never re-reads the enclosing
// frame directly, it reads its own copy established when the closure value
// was constructed.
func (b *builder) resolveCapture(varID uint32, frameIdx int, name string) uint32 {
	if len(b.captureStack) == 0 {
		return varID
	}
	cf := b.captureStack[len(b.captureStack)-1]
	if frameIdx >= cf.boundary {
		return varID
	}
	if inner, ok := cf.outerToInner[varID]; ok {
		return inner
	}
	outer, _ := b.variables.GetByID(varID)
	innerID := b.declareVariable(name, outer.SemType)
	cf.outerToInner[varID] = innerID
	cf.order = append(cf.order, CapturePair{OuterVarID: varID, InnerVarID: innerID})
	b.captureStack[len(b.captureStack)-1] = cf
	return innerID
}

// buildClosureExpr lowers a closure literal: a query-bodied closure (§4.6)
// keeps its single Query as the lowered body instead of a procedural
// block; codegen stores a prepared-statement pointer in the callable
// record's third word, not in the capture record.
func (b *builder) buildClosureExpr(e *astinput.Expression) (*Expr, error) {
	paramTypes := make([]*semtype.Type, len(e.Params))
	for i, p := range e.Params {
		pt, err := b.resolveTypeNode(&p.Type)
		if err != nil {
			return nil, err
		}
		paramTypes[i] = pt
	}
	retType, err := b.resolveTypeNode(e.ReturnType)
	if err != nil {
		return nil, err
	}

	closureID := b.closures.InsertAnonymous(nil)

	savedReturn := b.currentReturnType
	savedClosureID := b.currentClosureID
	b.currentReturnType = retType
	b.currentClosureID = closureID

	b.pushFrame(scope.Closure)
	b.captureStack = append(b.captureStack, captureFrame{
		boundary:     len(b.names) - 1,
		outerToInner: make(map[uint32]uint32),
	})

	paramIDs := make([]uint32, len(e.Params))
	for i, p := range e.Params {
		paramIDs[i] = b.declareVariable(p.Name, paramTypes[i])
	}

	var body ClosureBody
	if e.BodyExpr != nil && e.BodyExpr.Kind == astinput.ExprQuery {
		q, err := b.buildQuery(e.BodyExpr.Query)
		if err != nil {
			b.popCaptureFrame(false)
			return nil, err
		}
		body = ClosureBody{IsQuery: true, Query: q}
	} else if e.BodyExpr != nil {
		ret, err := b.buildExpression(e.BodyExpr)
		if err != nil {
			b.popCaptureFrame(false)
			return nil, err
		}
		if !retType.TryDowncast(ret.SemType) {
			b.popCaptureFrame(false)
			return nil, qlerr.Newf(qlerr.MistypedReturnValue, "", "closure returns %s, declared %s", ret.SemType, retType)
		}
		body = ClosureBody{Block: Block{Statements: []Stmt{{Kind: StmtReturn, ReturnExpr: ret}}, Terminates: true}}
	} else {
		blk, err := b.buildBlock(e.Body)
		if err != nil {
			b.popCaptureFrame(false)
			return nil, err
		}
		if retType.Tag() != semtype.Void && !blk.Terminates {
			b.popCaptureFrame(false)
			return nil, qlerr.New(qlerr.InexhaustiveReturnPaths, "closure")
		}
		body = ClosureBody{Block: blk}
	}

	cf := b.popCaptureFrame(!body.Block.Terminates && !body.IsQuery)
	body.Block.Statements = append(body.Block.Statements, dropStmts(cf.dropIDs)...)

	b.currentReturnType = savedReturn
	b.currentClosureID = savedClosureID

	closure := &Closure{
		ID:                closureID,
		ParamIDs:          paramIDs,
		ParamTypes:        paramTypes,
		ReturnType:        retType,
		CapturedVariables: cf.order,
		Body:              body,
	}
	b.closures.MutateByID(closureID, func(*Closure) *Closure { return closure })

	return &Expr{
		Kind:      ExprClosureRef,
		SemType:   semtype.NewCallable(paramTypes, retType),
		Owned:     Owned,
		ClosureID: closureID,
	}, nil
}

// capturePop bundles the capture list with the frame's own normal-exit
// drop ids so callers can append both without a second round trip through
// scope.Tracker.
type capturePop struct {
	order   []CapturePair
	dropIDs []uint32
}

func (b *builder) popCaptureFrame(normalExit bool) capturePop {
	drops := b.popFrame(normalExit)
	cf := b.captureStack[len(b.captureStack)-1]
	b.captureStack = b.captureStack[:len(b.captureStack)-1]
	return capturePop{order: cf.order, dropIDs: drops}
}
