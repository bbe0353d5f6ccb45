// Package codegen is component G: it walks a SemProgram (component D's
// output, alongside component E's struct layouts) and emits an LLVM module
// using github.com/llir/llvm, the pure-Go IR builder — functions, basic
// blocks, branches, and calls against the runtime ABI named in
// internal/runtimeabi.
//
// Grounded on original_source/compiler/src/codegen/mod.rs: that module
// drives inkwell (LLVM's Rust bindings) through the same
// function-then-block-then-instruction sequence this package drives
// llir/llvm through. Choosing llir/llvm over a cgo LLVM binding is
// recorded in DESIGN.md.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/qlcompiler/qlc/internal/runtimeabi"
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/qlcompiler/qlc/internal/typeinfo"
)

// Emitter holds the cross-function state component G accumulates once per
// program: the module, its external runtime declarations, interned string
// constants, and every struct's layout.
type Emitter struct {
	prog    *sem.SemProgram
	layouts typeinfo.Table

	m *ir.Module

	externs map[string]*ir.Func
	strings map[string]*ir.Global

	funcs map[uint32]*ir.Func // sem function id -> emitted LLVM function

	typeInfoGlobals map[uint32]*ir.Global // struct id -> its typeinfo global
}

// Pointer-width generic opaque heap handle: every String/Array/NamedStruct
// runtime object is accessed through an i8* handle; the runtime alone
// knows each object's real shape.
var ptrI8 = types.NewPointer(types.I8)

// NewEmitter builds an Emitter ready to lower prog's functions, with the
// runtime's external symbols already declared and every struct's layout
// precomputed by internal/typeinfo.
func NewEmitter(prog *sem.SemProgram) *Emitter {
	e := &Emitter{
		prog:            prog,
		m:               ir.NewModule(),
		externs:         make(map[string]*ir.Func),
		strings:         make(map[string]*ir.Global),
		funcs:           make(map[uint32]*ir.Func),
		typeInfoGlobals: make(map[uint32]*ir.Global),
	}
	e.layouts = typeinfo.BuildTable(structInputs(prog))
	e.declareRuntime()
	e.declareTypeInfoGlobals()
	return e
}

func structInputs(prog *sem.SemProgram) []typeinfo.StructInput {
	out := make([]typeinfo.StructInput, 0, len(prog.Structs))
	for _, s := range prog.Structs {
		out = append(out, typeinfo.StructInput{ID: s.ID, Name: s.Name, FieldOrder: s.FieldOrder, Fields: s.Fields})
	}
	return out
}

// llvmType maps a SemType to its LLVM representation: primitives map
// directly, everything that CanBeOwned (String/Array/NamedStruct) is an
// opaque i8* runtime handle, and Callable is the 3-word record described
// in internal/closure.
func (e *Emitter) llvmType(t *semtype.Type) types.Type {
	switch t.Tag() {
	case semtype.Integer:
		return types.I64
	case semtype.Bool:
		return types.I1
	case semtype.Void:
		return types.Void
	case semtype.Callable:
		// Represented as a 3-word aggregate value (not a pointer to one): a
		// callable is built with insertvalue at its construction site and
		// consumed with extractvalue at its call site, the same way any
		// small fixed-shape record would be passed by value in LLVM IR.
		return types.NewStruct(ptrI8, ptrI8, ptrI8)
	default:
		return ptrI8
	}
}

// declareRuntime emits one external ir.Func per runtimeabi symbol this
// module might call. Every declared function uses i8* for any
// heap-object parameter/return, matching the Emitter's type mapping.
func (e *Emitter) declareRuntime() {
	decl := func(name string, ret types.Type, params ...types.Type) {
		irParams := make([]*ir.Param, len(params))
		for i, p := range params {
			irParams[i] = ir.NewParam("", p)
		}
		f := e.m.NewFunc(name, ret, irParams...)
		f.Linkage = enum.LinkageExternal
		e.externs[name] = f
	}

	decl(runtimeabi.AddRef, types.Void, ptrI8)
	decl(runtimeabi.RemoveRef, types.Void, ptrI8)

	decl(runtimeabi.StringNew, ptrI8, ptrI8, types.I64)
	decl(runtimeabi.StringLen, types.I64, ptrI8)
	decl(runtimeabi.StringData, ptrI8, ptrI8)
	decl(runtimeabi.StringConcat, ptrI8, ptrI8, ptrI8)

	decl(runtimeabi.ArrayNew, ptrI8, ptrI8)
	decl(runtimeabi.ArrayAppend, types.Void, ptrI8, ptrI8)
	decl(runtimeabi.ArrayPop, ptrI8, ptrI8)
	decl(runtimeabi.ArrayLength, types.I64, ptrI8)
	decl(runtimeabi.ArrayGet, ptrI8, ptrI8, types.I64)

	decl(runtimeabi.StructAlloc, ptrI8, ptrI8)

	decl(runtimeabi.PrintString, types.Void, ptrI8)
	decl(runtimeabi.PrintInteger, types.Void, types.I64)
	decl(runtimeabi.PrintBool, types.Void, types.I1)
	decl(runtimeabi.InputInteger, types.I64)
	decl(runtimeabi.InputString, ptrI8)

	decl(runtimeabi.QueryPrepare, ptrI8, ptrI8)
	decl(runtimeabi.QueryBindInteger, types.Void, ptrI8, types.I64, types.I64)
	decl(runtimeabi.QueryBindString, types.Void, ptrI8, types.I64, ptrI8)
	decl(runtimeabi.QueryBindBool, types.Void, ptrI8, types.I64, types.I1)
	decl(runtimeabi.QueryExecute, types.I64, ptrI8)
	decl(runtimeabi.QueryStep, types.I1, ptrI8)
	decl(runtimeabi.QueryColumnRow, ptrI8, ptrI8, ptrI8)
	decl(runtimeabi.QueryFinalize, types.Void, ptrI8)

	decl(runtimeabi.RuntimeInit, types.Void)
	decl(runtimeabi.RuntimeExit, types.Void)
	decl(runtimeabi.Panic, types.Void, ptrI8)
}

// declareTypeInfoGlobals emits one opaque-but-named global per struct,
// used only as a stable address the runtime looks up field layout from —
// the global's contents are supplied by the runtime's own typeinfo table
// at link time, so the module only needs to reference the symbol, not
// define its bytes (mirrors structs.rs emitting an extern typeinfo symbol
// per struct rather than a literal constant).
func (e *Emitter) declareTypeInfoGlobals() {
	for id, s := range e.prog.Structs {
		g := e.m.NewGlobal(runtimeabi.TypeInfoGlobal(s.Name), types.I8)
		g.Linkage = enum.LinkageExternal
		e.typeInfoGlobals[id] = g
	}
}

// internString interns a Go string literal as a module-level constant
// array, returning a cached global if the same literal was already
// emitted (matching structs.rs's approach to string-literal deduplication
// across a module).
func (e *Emitter) internString(s string) *ir.Global {
	if g, ok := e.strings[s]; ok {
		return g
	}
	data := constant.NewCharArrayFromString(s + "\x00")
	name := fmt.Sprintf(".str.%d", len(e.strings))
	g := e.m.NewGlobalDef(name, data)
	g.Immutable = true
	e.strings[s] = g
	return g
}

// String renders the emitted module as LLVM textual IR — the compiler's
// out/main.o output named in §6 (see SPEC_FULL.md's EXTERNAL INTERFACES
// section for why this is text, not an object file, pending a separate
// llc/link step).
func (e *Emitter) String() string { return e.m.String() }
