// Package symtab implements the dual-index (name<->id) registries described
// in §3 and §4.2: every named entity kind (Datasource, Table, Struct,
// Function, Closure, Variable, Loop) gets a monotonically increasing id and,
// where named, a string index alongside it.
//
// Grounded on the teacher's two-index lookup style (schema's struct/table
// registries keyed first by name during parsing, then re-keyed by position
// for generation, e.g. schema/generator.go's table-name maps) generalized
// here into one reusable generic container, since the specification asks
// for the same container shape six times over.
package symtab

import "fmt"

// ID is the common id type for every registry: a monotonically increasing
// 32-bit integer, stable within a single compilation.
type ID = uint32

// IDGen hands out a fresh ID per call, starting at 1 (0 is reserved as the
// zero value / "no id").
type IDGen struct {
	next ID
}

func NewIDGen() *IDGen { return &IDGen{next: 1} }

func (g *IDGen) Next() ID {
	id := g.next
	g.next++
	return id
}

// Table is a dual-index registry over named entities of type T.
type Table[T any] struct {
	byID   map[ID]T
	byName map[string]ID
	ids    *IDGen
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{
		byID:   make(map[ID]T),
		byName: make(map[string]ID),
		ids:    NewIDGen(),
	}
}

// ContainsName reports whether name is already registered.
func (t *Table[T]) ContainsName(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Insert registers a fresh entity under name, returning its new id, or an
// error if the name is already taken.
func (t *Table[T]) Insert(name string, value T) (ID, error) {
	if t.ContainsName(name) {
		return 0, fmt.Errorf("duplicate definition of %q", name)
	}
	id := t.ids.Next()
	t.byID[id] = value
	t.byName[name] = id
	return id, nil
}

// InsertAnonymous registers an entity with no name index (e.g. a loop or a
// closure), returning its new id.
func (t *Table[T]) InsertAnonymous(value T) ID {
	id := t.ids.Next()
	t.byID[id] = value
	return id
}

func (t *Table[T]) GetByID(id ID) (T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

func (t *Table[T]) GetByName(name string) (T, bool) {
	id, ok := t.byName[name]
	if !ok {
		var zero T
		return zero, false
	}
	return t.GetByID(id)
}

func (t *Table[T]) IDByName(name string) (ID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// MutateByID applies fn to the entity stored at id, writing the result
// back. Returns false if id is not registered.
func (t *Table[T]) MutateByID(id ID, fn func(T) T) bool {
	v, ok := t.byID[id]
	if !ok {
		return false
	}
	t.byID[id] = fn(v)
	return true
}

// Each iterates entities in unspecified order (map iteration), matching the
// registries' own "cross-entity references are id lookups" design — callers
// never depend on ordering here, only on id stability.
func (t *Table[T]) Each(fn func(id ID, value T)) {
	for id, v := range t.byID {
		fn(id, v)
	}
}

func (t *Table[T]) Len() int { return len(t.byID) }
