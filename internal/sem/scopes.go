package sem

import (
	"github.com/qlcompiler/qlc/internal/scope"
	"github.com/qlcompiler/qlc/internal/semtype"
)

// pushFrame enters a new lexical frame, mirroring it in both the
// ownership-drop tracker (scope.Tracker) and the name-resolution stack.
func (b *builder) pushFrame(kind scope.Kind) {
	b.scope.EnterScope(kind, 0, b.currentClosureID)
	b.names = append(b.names, make(map[string]uint32))
}

func (b *builder) pushLoopFrame(label string, loopID uint32) {
	b.scope.EnterLoop(label, loopID)
	b.names = append(b.names, make(map[string]uint32))
}

// popFrame exits the current frame, returning the variable ids to drop on
// normal exit (nil if the block already terminates).
func (b *builder) popFrame(normalExit bool) []uint32 {
	drops := b.scope.ExitScope(normalExit)
	b.names = b.names[:len(b.names)-1]
	return drops
}

// declareVariable registers a fresh variable in both the global variable
// registry and the current lexical frame, recording it with scope.Tracker
// when its type can carry heap ownership.
func (b *builder) declareVariable(name string, t *semtype.Type) uint32 {
	id := b.variables.InsertAnonymous(&Variable{Name: name, SemType: t})
	v, _ := b.variables.GetByID(id)
	v.ID = id
	b.names[len(b.names)-1][name] = id
	if t.CanBeOwned() {
		b.scope.DeclareOwnedVar(id)
	}
	return id
}

// lookupVariable resolves an identifier by walking the name stack from the
// innermost frame outward.
func (b *builder) lookupVariable(name string) (uint32, bool) {
	id, _, ok := b.lookupVariableAt(name)
	return id, ok
}

// lookupVariableAt is lookupVariable plus the frame index the name
// resolved at, used by closure building to tell a local from a capture.
func (b *builder) lookupVariableAt(name string) (uint32, int, bool) {
	for i := len(b.names) - 1; i >= 0; i-- {
		if id, ok := b.names[i][name]; ok {
			return id, i, true
		}
	}
	return 0, -1, false
}

// dropStmts turns a list of variable ids into IR Drop statements, in the
// order scope.Tracker already returned them.
func dropStmts(ids []uint32) []Stmt {
	out := make([]Stmt, len(ids))
	for i, id := range ids {
		out[i] = Stmt{Kind: StmtDrop, DropVarID: id}
	}
	return out
}
