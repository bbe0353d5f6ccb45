// Package typeinfo computes the struct layout facts component G's emitter
// needs: field byte offsets, a struct's total size, and which fields need a
// copy/drop thunk call at construction/destruction time because they can
// carry heap ownership.
//
// Grounded on original_source/compiler/src/codegen/structs.rs, which walks
// a struct's fields in declaration order accumulating offsets the same way
// before emitting its LLVM type and its copy/drop glue functions.
package typeinfo

import "github.com/qlcompiler/qlc/internal/semtype"

// Word sizes of the runtime's value representation, matching §6: Integer is
// a native i64, Bool an i1 widened to a byte in memory, String/Array/named
// struct-with-heap-fields are single pointers to a ref-counted runtime
// object, and Callable is a three-word {fn ptr, context ptr, stmt ptr}
// record (see internal/closure for the third word's use).
const (
	SizeInteger  = 8
	SizeBool     = 1
	SizePointer  = 8
	SizeCallable = 3 * SizePointer
)

// FieldLayout is one struct field's placement.
type FieldLayout struct {
	Name      string
	Offset    int
	Size      int
	Type      *semtype.Type
	NeedsCopy bool // true if constructing a value of this field must add_ref it
	NeedsDrop bool // true if destroying a value of this field must remove_ref it
}

// StructLayout is a struct type's full field-offset table plus its total
// size, 8-byte aligned as the runtime's allocator expects.
type StructLayout struct {
	StructID   uint32
	Name       string
	Fields     []FieldLayout
	Size       int
}

// SizeOf returns the in-memory width of a value of type t, ignoring nested
// struct recursion (NamedStruct fields are always accessed by pointer once
// they carry ownership, exactly like String/Array).
func SizeOf(t *semtype.Type) int {
	switch t.Tag() {
	case semtype.Integer:
		return SizeInteger
	case semtype.Bool:
		return SizeBool
	case semtype.Callable:
		return SizeCallable
	default:
		// String, Array, NamedStruct, AnonymousStruct, Any, Void: all
		// represented as a single pointer (heap object, or unreachable).
		return SizePointer
	}
}

// align rounds up to the next multiple of 8, the runtime heap allocator's
// minimum alignment guarantee.
func align(n int) int {
	const a = 8
	if n%a == 0 {
		return n
	}
	return n + (a - n%a)
}

// BuildLayout computes field offsets in declaration order (fieldOrder),
// accumulating size with 8-byte alignment between fields the way
// structs.rs's layout pass does.
func BuildLayout(structID uint32, name string, fieldOrder []string, fields map[string]*semtype.Type) StructLayout {
	layout := StructLayout{StructID: structID, Name: name}
	offset := 0
	for _, fname := range fieldOrder {
		ft := fields[fname]
		size := SizeOf(ft)
		fl := FieldLayout{
			Name:      fname,
			Offset:    offset,
			Size:      size,
			Type:      ft,
			NeedsCopy: ft.CanBeOwned(),
			NeedsDrop: ft.CanBeOwned(),
		}
		layout.Fields = append(layout.Fields, fl)
		offset = align(offset + size)
	}
	layout.Size = offset
	return layout
}

// Table is the program-wide collection of every named struct's layout,
// keyed by struct id, built once after component D finishes so codegen
// never recomputes a layout mid-emission.
type Table map[uint32]StructLayout

// BuildTable computes every layout a SemProgram's struct registry names.
// Accepts the raw field data directly (name, fieldOrder, fields) rather
// than importing internal/sem, so this package has no dependency on the
// semantic builder — only on the type algebra it types its fields with.
func BuildTable(structs []StructInput) Table {
	out := make(Table, len(structs))
	for _, s := range structs {
		out[s.ID] = BuildLayout(s.ID, s.Name, s.FieldOrder, s.Fields)
	}
	return out
}

// StructInput is the minimal view of a registered struct BuildTable needs.
type StructInput struct {
	ID         uint32
	Name       string
	FieldOrder []string
	Fields     map[string]*semtype.Type
}

// FieldByName finds a field's layout within a struct, for codegen's
// FieldRead/FieldWrite emission.
func (l StructLayout) FieldByName(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}
