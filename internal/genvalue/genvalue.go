// Package genvalue defines GenValue, the codegen-time pairing of an LLVM
// value with the ownership bookkeeping component G needs to decide when to
// emit an add_ref/remove_ref runtime call. It has no dependency on
// llir/llvm itself: codegen supplies whatever it uses as the "LLVM value"
// slot through the generic Value field, keeping the ownership-discipline
// logic testable without constructing real IR.
//
// Grounded on original_source/compiler/src/codegen/mod.rs's GenValue and
// the add_ref/remove_ref call sites scattered through closure.rs and
// structs.rs: every one of those call sites reduces to "is this type
// CanBeOwned, and if so, is this occurrence an Owned, Borrowed, or Trivial
// one" — this package is that decision, decoupled from the emitter.
package genvalue

import "github.com/qlcompiler/qlc/internal/semtype"

// Ownership mirrors sem.Ownership without importing internal/sem, so this
// package stays usable from any value-producing site (codegen building a
// literal, a loaded field, a call result) without a semantic-builder
// dependency.
type Ownership int

const (
	Owned Ownership = iota
	Borrowed
	Trivial
)

// GenValue is one live value during emission: the underlying LLVM operand
// (left generic so this package never imports llir/llvm), its semantic
// type, and whether the current code path owns a reference to it.
type GenValue struct {
	Value   any
	SemType *semtype.Type
	Owned   Ownership
}

// New wraps a freshly produced LLVM operand with its type and ownership.
func New(value any, t *semtype.Type, owned Ownership) GenValue {
	return GenValue{Value: value, SemType: t, Owned: owned}
}

// NeedsRefcount reports whether this value's type ever needs an
// add_ref/remove_ref call at all — Integer/Bool/Void/Callable never do.
func (v GenValue) NeedsRefcount() bool {
	return v.SemType.CanBeOwned()
}

// NeedsAddRefOnCopy reports whether storing this value into a new binding
// (a variable, a struct field, a closure capture) must add_ref it first: a
// Borrowed reference being retained past its current scope always does; an
// Owned value being moved (not duplicated) does not, since ownership
// transfers rather than multiplying.
func (v GenValue) NeedsAddRefOnCopy() bool {
	return v.NeedsRefcount() && v.Owned == Borrowed
}

// NeedsRemoveRefOnDrop reports whether a Drop statement lowering this
// variable must call remove_ref — Trivial values never do; every
// refcounted value that is Owned or Borrowed does.
func (v GenValue) NeedsRemoveRefOnDrop() bool {
	return v.NeedsRefcount() && v.Owned != Trivial
}

// AsOwned reinterprets v as an Owned value without touching Value/SemType,
// used after an add_ref call has run so subsequent drops release it.
func (v GenValue) AsOwned() GenValue {
	v.Owned = Owned
	return v
}

// AsBorrowed reinterprets v as a Borrowed value — read-only access that
// must not outlive its source without its own add_ref.
func (v GenValue) AsBorrowed() GenValue {
	v.Owned = Borrowed
	return v
}
