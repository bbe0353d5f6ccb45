// Package semtype implements the SemType algebra described in §3 and §4.1
// of the specification: a small structural type system with a mutable Any
// placeholder resolved in place by downcast, covariant arrays, invariant-
// parameter/covariant-return callables, and named/anonymous struct
// unification.
//
// Grounded on original_source/compiler/src/semantics/types.rs: that
// implementation represents a type as Rc<RefCell<SemanticTypeKind>> so an
// Any cell can be mutated in place by any alias; this package keeps the
// same interior-mutability shape (a pointer to a mutable Kind) rather than
// a union-find over type variables, since Go's garbage collector removes
// the aliasing hazard union-find is meant to avoid — see DESIGN.md.
package semtype

import (
	"fmt"
	"strings"
)

// Tag discriminates the variants a Type's Kind can hold.
type Tag int

const (
	Any Tag = iota
	Integer
	Bool
	String
	Array
	NamedStruct
	AnonymousStruct
	Callable
	Void
)

func (t Tag) String() string {
	switch t {
	case Any:
		return "any"
	case Integer:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "str"
	case Array:
		return "array"
	case NamedStruct:
		return "named_struct"
	case AnonymousStruct:
		return "anonymous_struct"
	case Callable:
		return "callable"
	case Void:
		return "void"
	default:
		return "unknown"
	}
}

// Type is a shared, mutable reference to a type. Two Types are unified by
// mutating one cell's Kind in place, never by allocating a new Type — every
// existing alias observes the resolution.
type Type struct {
	kind Kind
}

// Kind is the concrete shape behind a Type at a point in time.
type Kind struct {
	Tag Tag

	// Array
	Elem *Type

	// NamedStruct
	StructID   uint32
	StructName string
	// StructFields backs NamedStruct downcast/field-matching without a
	// registry round-trip; ordered lookups belong to typeinfo, not here.
	StructFields map[string]*Type

	// AnonymousStruct
	Fields map[string]*Type

	// Callable
	Params []*Type
	Return *Type
}

// New wraps a fresh cell around kind.
func New(kind Kind) *Type { return &Type{kind: kind} }

func NewAny() *Type            { return New(Kind{Tag: Any}) }
func NewInteger() *Type         { return New(Kind{Tag: Integer}) }
func NewBool() *Type            { return New(Kind{Tag: Bool}) }
func NewString() *Type          { return New(Kind{Tag: String}) }
func NewVoid() *Type            { return New(Kind{Tag: Void}) }
func NewArray(elem *Type) *Type { return New(Kind{Tag: Array, Elem: elem}) }

func NewNamedStruct(id uint32, name string, fields map[string]*Type) *Type {
	return New(Kind{Tag: NamedStruct, StructID: id, StructName: name, StructFields: fields})
}

func NewAnonymousStruct(fields map[string]*Type) *Type {
	return New(Kind{Tag: AnonymousStruct, Fields: fields})
}

func NewCallable(params []*Type, ret *Type) *Type {
	return New(Kind{Tag: Callable, Params: params, Return: ret})
}

// Kind returns a snapshot of the type's current shape.
func (t *Type) Kind() Kind { return t.kind }

func (t *Type) Tag() Tag { return t.kind.Tag }

// IsConcrete reports whether the type contains no Any cell and no
// AnonymousStruct anywhere beneath it.
func (t *Type) IsConcrete() bool {
	switch t.kind.Tag {
	case Any, AnonymousStruct:
		return false
	case Array:
		return t.kind.Elem.IsConcrete()
	case Callable:
		for _, p := range t.kind.Params {
			if !p.IsConcrete() {
				return false
			}
		}
		return t.kind.Return.IsConcrete()
	default:
		return true
	}
}

// CanBeOwned reports whether a value of this type can carry heap ownership:
// String, Array, or a NamedStruct with at least one ownable field.
func (t *Type) CanBeOwned() bool {
	switch t.kind.Tag {
	case String, Array:
		return true
	case NamedStruct:
		for _, f := range t.kind.StructFields {
			if f.CanBeOwned() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Unify succeeds iff a downcasts to b or b downcasts to a (symmetric).
func Unify(a, b *Type) bool {
	return a.TryDowncast(b) || b.TryDowncast(a)
}

// TryDowncast attempts to mutate the receiver toward target, returning
// whether it succeeded. See §4.1 rules (a)-(g).
func (t *Type) TryDowncast(target *Type) bool {
	// (a) value is Any: adopt target's kind wholesale.
	if t.kind.Tag == Any {
		t.kind = target.kind
		return true
	}

	switch {
	// (b) primitives match by identity.
	case t.kind.Tag == Integer && target.kind.Tag == Integer,
		t.kind.Tag == Bool && target.kind.Tag == Bool,
		t.kind.Tag == String && target.kind.Tag == String,
		t.kind.Tag == Void && target.kind.Tag == Void:
		return true

	// (c) Array is covariant in its element type.
	case t.kind.Tag == Array && target.kind.Tag == Array:
		return t.kind.Elem.TryDowncast(target.kind.Elem)

	// (d) two NamedStructs match iff same id.
	case t.kind.Tag == NamedStruct && target.kind.Tag == NamedStruct:
		return t.kind.StructID == target.kind.StructID

	// (e) AnonymousStruct downcasts to NamedStruct when fields match pairwise,
	// rewriting the value's cell to the named form.
	case t.kind.Tag == AnonymousStruct && target.kind.Tag == NamedStruct:
		if downcastStructFields(target.kind.StructFields, t.kind.Fields) {
			t.kind = target.kind
			return true
		}
		return false

	// (f) two anonymous records match iff field sets match and each pair downcasts.
	case t.kind.Tag == AnonymousStruct && target.kind.Tag == AnonymousStruct:
		return downcastStructFields(target.kind.Fields, t.kind.Fields)

	// (g) Callable is invariant in parameters, covariant in return.
	case t.kind.Tag == Callable && target.kind.Tag == Callable:
		if len(t.kind.Params) != len(target.kind.Params) {
			return false
		}
		for i := range t.kind.Params {
			if !paramsEqual(t.kind.Params[i], target.kind.Params[i]) {
				return false
			}
		}
		return t.kind.Return.TryDowncast(target.kind.Return)

	default:
		return false
	}
}

// paramsEqual checks invariant parameter compatibility without mutating
// either side — a Callable's parameters are never themselves refined by
// the act of comparing two callables.
func paramsEqual(a, b *Type) bool {
	if a.kind.Tag == Any || b.kind.Tag == Any {
		return true
	}
	return TypesStructurallyEqual(a, b)
}

// TypesStructurallyEqual reports whether a and b currently describe the
// same shape, without mutating either.
func TypesStructurallyEqual(a, b *Type) bool {
	if a.kind.Tag != b.kind.Tag {
		return false
	}
	switch a.kind.Tag {
	case Array:
		return TypesStructurallyEqual(a.kind.Elem, b.kind.Elem)
	case NamedStruct:
		return a.kind.StructID == b.kind.StructID
	case AnonymousStruct:
		if len(a.kind.Fields) != len(b.kind.Fields) {
			return false
		}
		for name, ta := range a.kind.Fields {
			tb, ok := b.kind.Fields[name]
			if !ok || !TypesStructurallyEqual(ta, tb) {
				return false
			}
		}
		return true
	case Callable:
		if len(a.kind.Params) != len(b.kind.Params) {
			return false
		}
		for i := range a.kind.Params {
			if !TypesStructurallyEqual(a.kind.Params[i], b.kind.Params[i]) {
				return false
			}
		}
		return TypesStructurallyEqual(a.kind.Return, b.kind.Return)
	default:
		return true
	}
}

func downcastStructFields(target, value map[string]*Type) bool {
	if len(target) != len(value) {
		return false
	}
	for name, fieldType := range value {
		colType, ok := target[name]
		if !ok {
			return false
		}
		if !fieldType.TryDowncast(colType) {
			return false
		}
	}
	return true
}

// String renders the type the way a diagnostic would display it.
func (t *Type) String() string {
	switch t.kind.Tag {
	case Any:
		return "any"
	case Integer:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "str"
	case Void:
		return "void"
	case Array:
		return t.kind.Elem.String() + "[]"
	case NamedStruct:
		return t.kind.StructName
	case AnonymousStruct:
		var b strings.Builder
		b.WriteByte('{')
		i := 0
		for name, ty := range t.kind.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", name, ty)
			i++
		}
		b.WriteByte('}')
		return b.String()
	case Callable:
		var b strings.Builder
		b.WriteByte('(')
		for i, p := range t.kind.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteString(") -> ")
		b.WriteString(t.kind.Return.String())
		return b.String()
	default:
		return "?"
	}
}
