// Package astinput holds the Go realization of the AST input surface
// described in §6 of the specification. Lexing and parsing a QL source file
// into this tree happens entirely outside this module; astinput only
// defines the shape an external parser hands the compiler and decodes it
// from its JSON wire form (see decode.go) — nothing here scans or parses QL
// source text.
package astinput

// Program is the root of an input AST.
type Program struct {
	Datasources []Datasource `json:"datasources"`
	Tables      []Table      `json:"tables"`
	Functions   []Function   `json:"functions"`
}

type Datasource struct {
	Name     string `json:"name"`
	Readonly bool   `json:"readonly"`
}

type Table struct {
	Name       string   `json:"name"`
	Datasource string   `json:"datasource"`
	Readonly   bool     `json:"readonly"`
	Columns    []Column `json:"columns"`
}

type Column struct {
	Name string   `json:"name"`
	Type TypeNode `json:"type"`
}

// TypeNode is the AST-level (unresolved) type annotation surface: Integer,
// Bool, String, Array(elem), or a named Struct reference. Grounded on
// original_source/compiler/src/semantics/types.rs's TypeNode, which has the
// same four-plus-one shape.
type TypeNode struct {
	Kind TypeKind `json:"kind"`
	Elem *TypeNode `json:"elem,omitempty"`  // TypeKindArray
	Name string    `json:"name,omitempty"`  // TypeKindStruct
}

type TypeKind string

const (
	TypeKindInteger TypeKind = "integer"
	TypeKindBool    TypeKind = "bool"
	TypeKindString  TypeKind = "string"
	TypeKindArray   TypeKind = "array"
	TypeKindStruct  TypeKind = "struct"
)

type Param struct {
	Name string   `json:"name"`
	Type TypeNode `json:"type"`
}

type Function struct {
	Name       string      `json:"name"`
	Params     []Param     `json:"params"`
	ReturnType *TypeNode   `json:"return_type,omitempty"` // nil = void
	Body       []Statement `json:"body"`
}
