package javaio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeader(t *testing.T) {
	_, err := Decode(cat(header, []byte{TcNull}))
	assert.NoError(t, err)

	_, err = Decode(cat([]byte{0x00, 0x00, 0x00, 0x05}, []byte{TcNull}))
	assert.ErrorIs(t, err, ErrHeader)

	_, err = Decode(cat([]byte{0xac, 0xed, 0x00, 0x00}, []byte{TcNull}))
	assert.ErrorIs(t, err, ErrHeader)
}

func TestDecodeHeaderOnlyIsTruncation(t *testing.T) {
	_, err := Decode(header)
	assert.ErrorIs(t, err, ErrTruncated)

	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 4, se.Offset)
}

func TestDecodeHashMapShapedObject(t *testing.T) {
	v, err := Decode(hashMapFixture())
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, "X", obj.Class.Name)
	assert.True(t, obj.Class.HasWriteMethod())
	assert.Equal(t, BaseWireHandle, obj.Class.Handle)
	assert.Equal(t, BaseWireHandle+1, obj.Handle)

	lf, ok := obj.Field("loadFactor")
	require.True(t, ok)
	assert.Equal(t, Float(0.75), lf)
	th, ok := obj.Field("threshold")
	require.True(t, ok)
	assert.Equal(t, Int(12), th)

	require.Len(t, obj.Annotations, 3)
	block, ok := obj.Annotations[0].(BlockData)
	require.True(t, ok)
	assert.Equal(t, cat(u32b(16), u32b(1)), block.Data)
	assert.Equal(t, String("k"), obj.Annotations[1])
	assert.Equal(t, String("v"), obj.Annotations[2])
}

func TestDecodeIntArray(t *testing.T) {
	v, err := Decode(intArrayFixture())
	require.NoError(t, err)

	arr, ok := v.(*Array)
	require.True(t, ok)
	assert.Equal(t, "[I", arr.Class.Name)
	assert.Equal(t, TypeInt, arr.Class.ElementType())
	assert.Equal(t, []Value{Int(1), Int(2), Int(3)}, arr.Elements)
}

func TestDecodeProxyClassDesc(t *testing.T) {
	v, err := Decode(proxyFixture())
	require.NoError(t, err)

	desc, ok := v.(*ClassDesc)
	require.True(t, ok)
	assert.True(t, desc.Proxy)
	assert.Equal(t, "$Proxy[com.example.A,com.example.B]", desc.Name)
	assert.Equal(t, []string{"com.example.A", "com.example.B"}, desc.Interfaces)
	assert.Equal(t, ScSerializable, desc.Flags)
	assert.Empty(t, desc.Fields)
}

func TestDecodeEnum(t *testing.T) {
	data := cat(
		header,
		[]byte{TcEnum},
		[]byte{TcClassdesc},
		utfb("com.example.Color"),
		i64b(0),
		[]byte{ScSerializable | ScEnum},
		u16b(0),
		[]byte{TcEndblockdata},
		[]byte{TcNull},
		[]byte{TcString}, utfb("RED"),
	)
	v, err := Decode(data)
	require.NoError(t, err)

	e, ok := v.(*Enum)
	require.True(t, ok)
	assert.Equal(t, "com.example.Color", e.Class.Name)
	assert.True(t, e.Class.IsEnum())
	assert.Equal(t, "RED", e.Constant)
}

func TestDecodeStringThenReference(t *testing.T) {
	data := cat(
		header,
		[]byte{TcString}, utfb("foo"),
		[]byte{TcReference}, u32b(BaseWireHandle),
	)
	dec := NewDecoder(data)

	first, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, String("foo"), first)

	require.True(t, dec.More())
	second, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, String("foo"), second)
	assert.False(t, dec.More())
}

func TestDecodeReset(t *testing.T) {
	data := cat(
		header,
		[]byte{TcString}, utfb("a"),
		[]byte{TcReset},
		[]byte{TcString}, utfb("b"),
		[]byte{TcReference}, u32b(BaseWireHandle),
	)
	dec := NewDecoder(data)

	v, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, String("a"), v)

	// The reset is consumed transparently; "b" restarts handle
	// assignment at the base, so the trailing reference resolves to it.
	v, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, String("b"), v)
	assert.Equal(t, 1, dec.HandleCount())

	v, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, String("b"), v)
}

func TestDecodeSelfReferentialObject(t *testing.T) {
	// Class "N" with a single object field that points back at the
	// instance being decoded.
	data := cat(
		header,
		[]byte{TcObject},
		[]byte{TcClassdesc},
		utfb("N"),
		i64b(1),
		[]byte{ScSerializable},
		u16b(1),
		[]byte{TypeObject}, utfb("self"), []byte{TcString}, utfb("LN;"),
		[]byte{TcEndblockdata},
		[]byte{TcNull},
		[]byte{TcReference}, u32b(BaseWireHandle+2),
	)
	v, err := Decode(data)
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	self, ok := obj.Field("self")
	require.True(t, ok)
	ref, ok := self.(*Ref)
	require.True(t, ok)
	assert.Same(t, obj, ref.Target)
}

func TestDecodeUnresolvedReference(t *testing.T) {
	data := cat(header, []byte{TcReference}, u32b(BaseWireHandle+41))
	dec := NewDecoder(data)

	v, err := dec.Decode()
	require.NoError(t, err)
	ref, ok := v.(*Ref)
	require.True(t, ok)
	assert.Nil(t, ref.Target)
	assert.Equal(t, []uint32{BaseWireHandle + 41}, dec.Unresolved())
}

func TestDecodeMalformed(t *testing.T) {
	for _, tc := range []byte{0x00, 0x6f, 0x7f, TcException} {
		_, err := Decode(cat(header, []byte{tc}))
		assert.ErrorIs(t, err, ErrMalformed, "type code %#02x", tc)
	}
}

func TestDecodeErrorCarriesOffsetAndHandle(t *testing.T) {
	// Valid class descriptor, then garbage where the field value
	// should be is reported with the position and progress so far.
	data := cat(
		header,
		[]byte{TcObject},
		[]byte{TcClassdesc},
		utfb("X"),
		i64b(1),
		[]byte{ScSerializable},
		u16b(1),
		[]byte{TypeObject}, utfb("o"), []byte{TcString}, utfb("Ljava/lang/Object;"),
		[]byte{TcEndblockdata},
		[]byte{TcNull},
		[]byte{0x00}, // invalid content tag in field position
	)
	_, err := Decode(data)
	require.ErrorIs(t, err, ErrMalformed)

	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, len(data), se.Offset)
	// desc, type string, object: three handles assigned before failure.
	assert.Equal(t, BaseWireHandle+2, se.LastHandle)
}

func TestDecodeTypeStringRejectsOtherTags(t *testing.T) {
	data := cat(
		header,
		[]byte{TcObject},
		[]byte{TcClassdesc},
		utfb("X"),
		i64b(1),
		[]byte{ScSerializable},
		u16b(1),
		[]byte{TypeObject}, utfb("o"), []byte{TcNull},
	)
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeBlockDataForms(t *testing.T) {
	v, err := Decode(cat(header, []byte{TcBlockdata, 2, 0xde, 0xad}))
	require.NoError(t, err)
	assert.Equal(t, BlockData{Data: []byte{0xde, 0xad}}, v)

	v, err = Decode(cat(header, []byte{TcBlockdatalong}, u32b(2), []byte{0xbe, 0xef}))
	require.NoError(t, err)
	assert.Equal(t, BlockData{Data: []byte{0xbe, 0xef}, Long: true}, v)
}
