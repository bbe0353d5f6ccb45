package closure

import (
	"testing"

	"github.com/qlcompiler/qlc/internal/sem"
	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/stretchr/testify/assert"
)

func TestBuildCaptureLayoutOrdersAndSizesFields(t *testing.T) {
	prog := &sem.SemProgram{
		Variables: map[uint32]*sem.Variable{
			10: {ID: 10, Name: "total", SemType: semtype.NewInteger()},
			11: {ID: 11, Name: "label", SemType: semtype.NewString()},
		},
	}
	c := &sem.Closure{
		ID: 1,
		CapturedVariables: []sem.CapturePair{
			{OuterVarID: 10, InnerVarID: 20},
			{OuterVarID: 11, InnerVarID: 21},
		},
	}
	layout := BuildCaptureLayout(c, prog)
	assert.Len(t, layout.Fields, 2)
	assert.Equal(t, 0, layout.Fields[0].Offset)
	assert.Equal(t, 8, layout.Fields[1].Offset)
	assert.Equal(t, 16, layout.Size)
}

func TestBuildABIStatementSlot(t *testing.T) {
	queryClosure := &sem.Closure{Body: sem.ClosureBody{IsQuery: true}}
	abi := BuildABI(queryClosure)
	assert.True(t, abi.HasStatementSlot)
	assert.Equal(t, 3, abi.WordCount())

	plain := &sem.Closure{}
	assert.Equal(t, 2, BuildABI(plain).WordCount())
}
