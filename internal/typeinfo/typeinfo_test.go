package typeinfo

import (
	"testing"

	"github.com/qlcompiler/qlc/internal/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLayoutOffsetsAndOwnership(t *testing.T) {
	fields := map[string]*semtype.Type{
		"id":   semtype.NewInteger(),
		"name": semtype.NewString(),
		"done": semtype.NewBool(),
	}
	order := []string{"id", "name", "done"}

	layout := BuildLayout(1, "Task", order, fields)
	require.Len(t, layout.Fields, 3)

	id, ok := layout.FieldByName("id")
	require.True(t, ok)
	assert.Equal(t, 0, id.Offset)
	assert.False(t, id.NeedsDrop)

	name, ok := layout.FieldByName("name")
	require.True(t, ok)
	assert.Equal(t, SizeInteger, name.Offset)
	assert.True(t, name.NeedsDrop)
	assert.True(t, name.NeedsCopy)

	done, ok := layout.FieldByName("done")
	require.True(t, ok)
	assert.Equal(t, name.Offset+SizePointer, done.Offset)
	assert.False(t, done.NeedsDrop)

	assert.Equal(t, align(done.Offset+SizeBool), layout.Size)
}

func TestBuildTableCoversEveryStruct(t *testing.T) {
	table := BuildTable([]StructInput{
		{ID: 1, Name: "A", FieldOrder: []string{"x"}, Fields: map[string]*semtype.Type{"x": semtype.NewInteger()}},
		{ID: 2, Name: "B", FieldOrder: []string{"y"}, Fields: map[string]*semtype.Type{"y": semtype.NewArray(semtype.NewInteger())}},
	})
	assert.Len(t, table, 2)
	assert.Equal(t, "A", table[1].Name)
	b, ok := table[2].FieldByName("y")
	require.True(t, ok)
	assert.True(t, b.NeedsDrop)
}
