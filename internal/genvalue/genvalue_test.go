package genvalue

import (
	"testing"

	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/stretchr/testify/assert"
)

func TestRefcountDiscipline(t *testing.T) {
	str := semtype.NewString()
	integer := semtype.NewInteger()

	owned := New(nil, str, Owned)
	assert.True(t, owned.NeedsRefcount())
	assert.False(t, owned.NeedsAddRefOnCopy())
	assert.True(t, owned.NeedsRemoveRefOnDrop())

	borrowed := New(nil, str, Borrowed)
	assert.True(t, borrowed.NeedsAddRefOnCopy())
	assert.True(t, borrowed.NeedsRemoveRefOnDrop())

	trivial := New(nil, integer, Trivial)
	assert.False(t, trivial.NeedsRefcount())
	assert.False(t, trivial.NeedsAddRefOnCopy())
	assert.False(t, trivial.NeedsRemoveRefOnDrop())
}

func TestAsOwnedAsBorrowed(t *testing.T) {
	v := New(nil, semtype.NewArray(semtype.NewInteger()), Borrowed)
	assert.Equal(t, Owned, v.AsOwned().Owned)
	assert.Equal(t, Borrowed, v.AsOwned().AsBorrowed().Owned)
}
