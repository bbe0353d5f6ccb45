package semtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDowncastAnyAdoptsTarget(t *testing.T) {
	any := NewAny()
	ok := any.TryDowncast(NewInteger())
	assert.True(t, ok)
	assert.Equal(t, Integer, any.Tag())
}

func TestUnifyIsSymmetric(t *testing.T) {
	a := NewAny()
	b := NewInteger()
	assert.True(t, Unify(a, b))
	assert.Equal(t, Integer, a.Tag())

	c := NewBool()
	d := NewAny()
	assert.True(t, Unify(c, d))
	assert.Equal(t, Bool, d.Tag())
}

func TestArrayCovariance(t *testing.T) {
	arr := NewArray(NewAny())
	ok := arr.TryDowncast(NewArray(NewString()))
	assert.True(t, ok)
	assert.Equal(t, String, arr.Kind().Elem.Tag())
}

func TestNamedStructMatchesById(t *testing.T) {
	a := NewNamedStruct(1, "User", nil)
	b := NewNamedStruct(1, "User", nil)
	c := NewNamedStruct(2, "Other", nil)
	assert.True(t, a.TryDowncast(b))
	assert.False(t, a.TryDowncast(c))
}

func TestAnonymousStructPromotesToNamed(t *testing.T) {
	named := NewNamedStruct(7, "Row", map[string]*Type{
		"id":   NewInteger(),
		"name": NewString(),
	})
	anon := NewAnonymousStruct(map[string]*Type{
		"id":   NewAny(),
		"name": NewAny(),
	})

	ok := anon.TryDowncast(named)
	assert.True(t, ok)
	assert.Equal(t, NamedStruct, anon.Tag())
	assert.Equal(t, uint32(7), anon.Kind().StructID)
}

func TestAnonymousStructFieldMismatchFails(t *testing.T) {
	named := NewNamedStruct(7, "Row", map[string]*Type{
		"id": NewInteger(),
	})
	anon := NewAnonymousStruct(map[string]*Type{
		"id":    NewAny(),
		"extra": NewAny(),
	})
	assert.False(t, anon.TryDowncast(named))
}

func TestCallableInvariantParamsCovariantReturn(t *testing.T) {
	c1 := NewCallable([]*Type{NewInteger()}, NewAny())
	c2 := NewCallable([]*Type{NewInteger()}, NewString())
	assert.True(t, c1.TryDowncast(c2))
	assert.Equal(t, String, c1.Kind().Return.Tag())

	c3 := NewCallable([]*Type{NewString()}, NewAny())
	c4 := NewCallable([]*Type{NewInteger()}, NewString())
	assert.False(t, c3.TryDowncast(c4))
}

func TestIsConcrete(t *testing.T) {
	assert.False(t, NewAny().IsConcrete())
	assert.True(t, NewInteger().IsConcrete())
	assert.False(t, NewArray(NewAny()).IsConcrete())
	assert.True(t, NewArray(NewInteger()).IsConcrete())
	assert.False(t, NewAnonymousStruct(map[string]*Type{"a": NewInteger()}).IsConcrete())
}

func TestCanBeOwned(t *testing.T) {
	assert.True(t, NewString().CanBeOwned())
	assert.True(t, NewArray(NewInteger()).CanBeOwned())
	assert.False(t, NewInteger().CanBeOwned())
	assert.False(t, NewBool().CanBeOwned())

	withHeapField := NewNamedStruct(1, "S", map[string]*Type{"name": NewString()})
	assert.True(t, withHeapField.CanBeOwned())

	allTrivial := NewNamedStruct(2, "P", map[string]*Type{"x": NewInteger()})
	assert.False(t, allTrivial.CanBeOwned())
}
