package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalExitDropsOwnedVars(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Block, 0, 0)
	tr.DeclareOwnedVar(1)
	tr.DeclareOwnedVar(2)
	drops := tr.ExitScope(true)
	assert.Equal(t, []uint32{1, 2}, drops)
}

func TestTerminatingExitDropsNothingHere(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Block, 0, 0)
	tr.DeclareOwnedVar(1)
	drops := tr.ExitScope(false)
	assert.Nil(t, drops)
}

func TestReturnDropsEveryFrameAboveFunction(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Function, 0, 0)
	tr.DeclareOwnedVar(100) // function-level var: NOT dropped by return
	tr.EnterScope(Block, 0, 0)
	tr.DeclareOwnedVar(1)
	tr.EnterScope(Block, 0, 0)
	tr.DeclareOwnedVar(2)

	drops := tr.DropsForReturn()
	assert.ElementsMatch(t, []uint32{1, 2}, drops)
	assert.NotContains(t, drops, uint32(100))
}

func TestBreakDropsFramesAboveLoopNotLoopItself(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Function, 0, 0)
	tr.EnterLoop("", 9)
	tr.DeclareOwnedVar(5) // owned by the loop frame itself: not dropped
	tr.EnterScope(Block, 0, 0)
	tr.DeclareOwnedVar(6)

	drops, loopID, err := tr.DropsForBreak("")
	require.NoError(t, err)
	assert.Equal(t, uint32(9), loopID)
	assert.Equal(t, []uint32{6}, drops)
}

func TestBreakWithUnknownLabelFails(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Function, 0, 0)
	tr.EnterLoop("outer", 1)

	_, _, err := tr.DropsForBreak("nope")
	assert.Error(t, err)
}

func TestBreakOutsideLoopFails(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Function, 0, 0)

	_, _, err := tr.DropsForBreak("")
	assert.Error(t, err)
}

func TestLabelledLoopResolution(t *testing.T) {
	tr := NewTracker()
	tr.EnterScope(Function, 0, 0)
	tr.EnterLoop("outer", 1)
	tr.EnterLoop("inner", 2)

	// unlabeled continue/break targets innermost
	drops, loopID, err := tr.DropsForContinue("")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), loopID)
	assert.Empty(t, drops)

	// labelled break targets the named (outer) loop, dropping the inner frame
	drops, loopID, err = tr.DropsForBreak("outer")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loopID)
	assert.Empty(t, drops)
}
