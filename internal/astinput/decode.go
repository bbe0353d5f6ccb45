package astinput

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decode reads a JSON-encoded Program from r. This is the compiler's only
// "parsing" step, and it parses an already-built tree, not QL source text —
// the lexer/parser that produces this JSON is an external collaborator per
// §1.
//
// Mirrors the teacher's top-level Parse entrypoint (parser/sqldef.go's
// Parse) in spirit: one function, wraps the underlying error with context,
// returns the fully-built tree.
func Decode(r io.Reader) (*Program, error) {
	var prog Program
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("decoding AST: %w", err)
	}
	return &prog, nil
}
