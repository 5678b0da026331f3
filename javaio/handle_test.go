package javaio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleTableMonotonic(t *testing.T) {
	var tab handleTable
	a := tab.assign(String("a"))
	b := tab.assign(String("b"))
	assert.Equal(t, BaseWireHandle, a)
	assert.Equal(t, BaseWireHandle+1, b)
	assert.Equal(t, b, tab.last())

	v, ok := tab.resolve(a)
	assert.True(t, ok)
	assert.Equal(t, String("a"), v)

	_, ok = tab.resolve(BaseWireHandle + 2)
	assert.False(t, ok)
	_, ok = tab.resolve(BaseWireHandle - 1)
	assert.False(t, ok)
}

func TestHandleTableReset(t *testing.T) {
	var tab handleTable
	tab.assign(String("a"))
	tab.reset()

	assert.Equal(t, uint32(0), tab.last())
	_, ok := tab.resolve(BaseWireHandle)
	assert.False(t, ok)

	h := tab.assign(String("b"))
	assert.Equal(t, BaseWireHandle, h)
}

func TestEncodeRefsClassAliasing(t *testing.T) {
	refs := newEncodeRefs()
	desc := &ClassDesc{Name: "java.util.HashMap"}
	refs.registerClass(desc, refs.assign())

	// Identity hit.
	h, ok := refs.findClass(desc)
	assert.True(t, ok)
	assert.Equal(t, BaseWireHandle, h)

	// Name hit for a distinct descriptor of the same class.
	other := &ClassDesc{Name: "java.util.HashMap"}
	h, ok = refs.findClass(other)
	assert.True(t, ok)
	assert.Equal(t, BaseWireHandle, h)

	_, ok = refs.findClass(&ClassDesc{Name: "java.util.ArrayList"})
	assert.False(t, ok)
}
