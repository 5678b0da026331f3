package javaio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStringDedup(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Encode(String("foo")))
	require.NoError(t, enc.Encode(String("foo")))

	want := cat(
		header,
		[]byte{TcString}, utfb("foo"),
		[]byte{TcReference}, u32b(BaseWireHandle),
	)
	assert.Equal(t, want, enc.Bytes())
}

func TestEncodeHashMapShapedObject(t *testing.T) {
	desc := &ClassDesc{
		Name:             "X",
		SerialVersionUID: 1,
		Flags:            ScWriteMethod | ScSerializable,
		Fields: []FieldDesc{
			{TypeCode: TypeFloat, Name: "loadFactor"},
			{TypeCode: TypeInt, Name: "threshold"},
		},
	}
	obj := &Object{
		Class: desc,
		Fields: []FieldSlot{
			{Class: "X", Name: "loadFactor", Value: Float(0.75)},
			{Class: "X", Name: "threshold", Value: Int(12)},
		},
		Annotations: []Value{
			BlockData{Data: cat(u32b(16), u32b(1))},
			String("k"),
			String("v"),
		},
	}

	got, err := Encode(obj)
	require.NoError(t, err)
	assert.Equal(t, hashMapFixture(), got)
}

func TestEncodeObjectIdentityDedup(t *testing.T) {
	desc := &ClassDesc{Name: "P", SerialVersionUID: 1, Flags: ScSerializable}
	shared := &Object{Class: desc}
	twin := &Object{Class: desc}

	arrDesc := &ClassDesc{Name: "[Ljava.lang.Object;", SerialVersionUID: 1, Flags: ScSerializable}
	arr := &Array{Class: arrDesc, Elements: []Value{shared, shared, twin}}

	data, err := Encode(arr)
	require.NoError(t, err)

	v, err := Decode(data)
	require.NoError(t, err)
	out := v.(*Array)
	require.Len(t, out.Elements, 3)

	first, ok := out.Elements[0].(*Object)
	require.True(t, ok)
	ref, ok := out.Elements[1].(*Ref)
	require.True(t, ok)
	assert.Same(t, first, ref.Target)

	// Structurally equal but distinct instances encode twice.
	second, ok := out.Elements[2].(*Object)
	require.True(t, ok)
	assert.NotSame(t, first, second)
}

func TestEncodeClassAnnotationTerminatorAlwaysPresent(t *testing.T) {
	desc := &ClassDesc{Name: "E", SerialVersionUID: 7, Flags: ScSerializable}
	data, err := Encode(&Object{Class: desc})
	require.NoError(t, err)

	want := cat(
		header,
		[]byte{TcObject},
		[]byte{TcClassdesc},
		utfb("E"),
		i64b(7),
		[]byte{ScSerializable},
		u16b(0),
		[]byte{TcEndblockdata},
		[]byte{TcNull},
	)
	assert.Equal(t, want, data)
}

func TestEncodeAnnotationGating(t *testing.T) {
	// Without ScWriteMethod no instance annotation is produced even if
	// items are present on the node; with the flag an empty list still
	// terminates with exactly one end-of-block tag.
	plain := &ClassDesc{Name: "A", SerialVersionUID: 1, Flags: ScSerializable}
	data, err := Encode(&Object{Class: plain, Annotations: []Value{String("x")}})
	require.NoError(t, err)
	assert.Equal(t, TcNull, data[len(data)-1], "no trailing annotation terminator")

	gated := &ClassDesc{Name: "B", SerialVersionUID: 1, Flags: ScSerializable | ScWriteMethod}
	data, err = Encode(&Object{Class: gated})
	require.NoError(t, err)
	assert.Equal(t, TcEndblockdata, data[len(data)-1])
}

func TestEncodeProxyRoundTrip(t *testing.T) {
	desc := &ClassDesc{
		Proxy:      true,
		Name:       proxyName([]string{"com.example.A", "com.example.B"}),
		Flags:      ScSerializable,
		Interfaces: []string{"com.example.A", "com.example.B"},
	}
	data, err := Encode(desc)
	require.NoError(t, err)
	assert.Equal(t, proxyFixture(), data)

	v, err := Decode(data)
	require.NoError(t, err)
	out := v.(*ClassDesc)
	assert.Equal(t, "$Proxy[com.example.A,com.example.B]", out.Name)
	assert.Equal(t, desc.Interfaces, out.Interfaces)
}

func TestEncodeUnsupportedValues(t *testing.T) {
	_, err := Encode(Int(1))
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = Encode(&Ref{Handle: BaseWireHandle})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	// Declared field without a slot.
	desc := &ClassDesc{
		Name:             "M",
		SerialVersionUID: 1,
		Flags:            ScSerializable,
		Fields:           []FieldDesc{{TypeCode: TypeInt, Name: "n"}},
	}
	_, err = Encode(&Object{Class: desc})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	// Field value of the wrong primitive type.
	_, err = Encode(&Object{
		Class:  desc,
		Fields: []FieldSlot{{Class: "M", Name: "n", Value: Long(1)}},
	})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestEncoderPoisonedAfterError(t *testing.T) {
	enc := NewEncoder()
	err := enc.Encode(Int(1))
	require.Error(t, err)

	assert.Equal(t, err, enc.Encode(Null{}))
	assert.Nil(t, enc.Bytes())
}

func TestEncodeReset(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Encode(String("a")))
	require.NoError(t, enc.Encode(Reset{}))
	// After the reset "a" is no longer aliased and handle assignment
	// restarts at the base.
	require.NoError(t, enc.Encode(String("a")))

	want := cat(
		header,
		[]byte{TcString}, utfb("a"),
		[]byte{TcReset},
		[]byte{TcString}, utfb("a"),
	)
	assert.Equal(t, want, enc.Bytes())
}
