package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndLookup(t *testing.T) {
	tbl := NewTable[string]()

	id, err := tbl.Insert("users", "row-struct")
	require.NoError(t, err)
	assert.Equal(t, ID(1), id)

	v, ok := tbl.GetByID(id)
	assert.True(t, ok)
	assert.Equal(t, "row-struct", v)

	v2, ok := tbl.GetByName("users")
	assert.True(t, ok)
	assert.Equal(t, "row-struct", v2)
}

func TestDuplicateNameFails(t *testing.T) {
	tbl := NewTable[int]()
	_, err := tbl.Insert("foo", 1)
	require.NoError(t, err)

	_, err = tbl.Insert("foo", 2)
	assert.Error(t, err)
}

func TestInsertAnonymousHasNoNameIndex(t *testing.T) {
	tbl := NewTable[int]()
	id := tbl.InsertAnonymous(42)
	assert.False(t, tbl.ContainsName("42"))
	v, ok := tbl.GetByID(id)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestIdsAreMonotonic(t *testing.T) {
	tbl := NewTable[int]()
	a := tbl.InsertAnonymous(1)
	b := tbl.InsertAnonymous(2)
	assert.Less(t, a, b)
}

func TestMutateByID(t *testing.T) {
	tbl := NewTable[int]()
	id := tbl.InsertAnonymous(1)
	ok := tbl.MutateByID(id, func(v int) int { return v + 41 })
	assert.True(t, ok)
	v, _ := tbl.GetByID(id)
	assert.Equal(t, 42, v)
}
