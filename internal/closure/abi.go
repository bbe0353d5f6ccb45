// Package closure computes the capture-record layout and callable ABI
// described in §4.6: every closure value is a 3-word record {function
// pointer, context pointer, prepared-statement pointer}, where the third
// word is only populated for a query-bodied closure.
//
// Grounded on original_source/compiler/src/codegen/closure.rs, which
// builds exactly this capture struct (one field per captured variable, in
// capture order) before emitting the closure's function body.
package closure

import (
	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/typeinfo"
)

// CaptureField is one field of a closure's generated capture-record
// struct: the inner variable id it initializes, and its layout.
type CaptureField struct {
	OuterVarID uint32
	InnerVarID uint32
	Offset     int
	Size       int
}

// CaptureLayout is a single closure's capture record: field order matches
// sem.Closure.CapturedVariables, so codegen can build the record at the
// closure's construction site and read from it inside the closure body
// using the same offsets.
type CaptureLayout struct {
	ClosureID uint32
	Fields    []CaptureField
	Size      int
}

// BuildCaptureLayout lays out c's capture list, looking up each captured
// variable's type in prog's variable registry to size its field.
func BuildCaptureLayout(c *sem.Closure, prog *sem.SemProgram) CaptureLayout {
	layout := CaptureLayout{ClosureID: c.ID}
	offset := 0
	for _, pair := range c.CapturedVariables {
		v := prog.Variables[pair.OuterVarID]
		size := typeinfo.SizeOf(v.SemType)
		layout.Fields = append(layout.Fields, CaptureField{
			OuterVarID: pair.OuterVarID,
			InnerVarID: pair.InnerVarID,
			Offset:     offset,
			Size:       size,
		})
		offset += size
	}
	layout.Size = offset
	return layout
}

// Slot names the three words of a callable value's in-memory
// representation (§4.6/§6).
type Slot int

const (
	SlotFunctionPointer Slot = iota
	SlotContextPointer
	SlotPreparedStatement
)

// ABI describes one closure's callable representation: whether it carries
// a live prepared-statement slot (query-bodied closures only) alongside
// the always-present function/context pointers.
type ABI struct {
	ClosureID       uint32
	HasStatementSlot bool
}

// BuildABI derives a closure's ABI from whether its body is a bare query
// (§4.6's "closures whose entire body is one query keep that query's
// prepared statement alive for the closure's lifetime" rule).
func BuildABI(c *sem.Closure) ABI {
	return ABI{ClosureID: c.ID, HasStatementSlot: c.Body.IsQuery}
}

// WordCount is how many of a callable value's pointer-sized words carry a
// value: always function pointer + context pointer, plus one more when
// HasStatementSlot. The emitted record always has all three words; the
// third stays null without a statement slot.
func (a ABI) WordCount() int {
	if a.HasStatementSlot {
		return 3
	}
	return 2
}
