package javaio

import (
	"fmt"
	"math"
)

// Encoder serializes a Value graph back to the wire format. It keeps its
// own handle-aliasing table so that repeated strings, class descriptors
// and composite nodes become back-references, exactly mirroring what the
// original writer produces. Encoding is all-or-nothing: after an error
// the encoder's output must be discarded.
type Encoder struct {
	w             writer
	refs          *encodeRefs
	headerWritten bool
	err           error
}

// Encode serializes one Value graph into a complete stream.
func Encode(v Value) ([]byte, error) {
	enc := NewEncoder()
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func NewEncoder() *Encoder {
	return &Encoder{refs: newEncodeRefs()}
}

// Encode writes the stream header (first call only) and one top-level
// content element. Once an Encode call fails the Encoder is poisoned and
// every later call returns the same error.
func (enc *Encoder) Encode(v Value) error {
	if enc.err != nil {
		return enc.err
	}
	if !enc.headerWritten {
		enc.w.writeUint16(StreamMagic)
		enc.w.writeUint16(StreamVersion)
		enc.headerWritten = true
	}
	if err := enc.writeContent(v); err != nil {
		enc.err = err
		return err
	}
	return nil
}

func (enc *Encoder) Bytes() []byte {
	if enc.err != nil {
		return nil
	}
	return enc.w.bytes()
}

func (enc *Encoder) writeContent(v Value) error {
	switch t := v.(type) {
	case nil:
		return fmt.Errorf("%w: nil value", ErrUnsupportedValue)
	case Null:
		enc.w.writeUint8(TcNull)
		return nil
	case String:
		return enc.writeString(string(t))
	case BlockData:
		return enc.writeBlockData(t)
	case *Object:
		return enc.writeObject(t)
	case *Array:
		return enc.writeArray(t)
	case *Enum:
		return enc.writeEnum(t)
	case *Class:
		return enc.writeClass(t)
	case *ClassDesc:
		return enc.writeClassDesc(t)
	case *Ref:
		return enc.writeRef(t)
	case Reset:
		enc.w.writeUint8(TcReset)
		enc.refs.reset()
		return nil
	case Bool, Byte, Char, Short, Int, Long, Float, Double:
		// Bare primitives exist only inside field values and primitive
		// arrays; the grammar has no content element for them.
		return fmt.Errorf("%w: primitive %T in content position", ErrUnsupportedValue, t)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, t)
	}
}

func (enc *Encoder) writeReference(h uint32) {
	enc.w.writeUint8(TcReference)
	enc.w.writeUint32(h)
}

// writeRef encodes an explicit reference node. The target must already
// have been emitted: the format only produces back-references, so a *Ref
// whose target is unseen (or was never resolved during decode) has no
// representation.
func (enc *Encoder) writeRef(r *Ref) error {
	switch t := r.Target.(type) {
	case nil:
		return fmt.Errorf("%w: dangling reference to handle %#x", ErrUnsupportedValue, r.Handle)
	case String:
		return enc.writeString(string(t))
	case *ClassDesc:
		return enc.writeClassDesc(t)
	default:
		if h, ok := enc.refs.objects[r.Target]; ok {
			enc.writeReference(h)
			return nil
		}
		return fmt.Errorf("%w: forward reference to %T", ErrUnsupportedValue, r.Target)
	}
}

func (enc *Encoder) writeString(s string) error {
	if h, ok := enc.refs.strings[s]; ok {
		enc.writeReference(h)
		return nil
	}
	h := enc.refs.assign()
	enc.refs.strings[s] = h
	if len(s) > math.MaxUint16 {
		enc.w.writeUint8(TcLongstring)
		enc.w.writeLongUTF(s)
		return nil
	}
	enc.w.writeUint8(TcString)
	return enc.w.writeUTF(s)
}

func (enc *Encoder) writeBlockData(b BlockData) error {
	if b.Long || len(b.Data) > math.MaxUint8 {
		if len(b.Data) > math.MaxInt32 {
			return fmt.Errorf("%w: block data of %d bytes", ErrUnsupportedValue, len(b.Data))
		}
		enc.w.writeUint8(TcBlockdatalong)
		enc.w.writeInt32(int32(len(b.Data)))
	} else {
		enc.w.writeUint8(TcBlockdata)
		enc.w.writeUint8(byte(len(b.Data)))
	}
	enc.w.writeBytes(b.Data)
	return nil
}

// writeClassDesc encodes a class descriptor or a back-reference to one
// already emitted. Descriptors alias by identity and, matching the
// original writer, by name.
func (enc *Encoder) writeClassDesc(desc *ClassDesc) error {
	if desc == nil {
		enc.w.writeUint8(TcNull)
		return nil
	}
	if h, ok := enc.refs.findClass(desc); ok {
		enc.writeReference(h)
		return nil
	}
	if desc.Proxy {
		return enc.writeProxyClassDesc(desc)
	}
	enc.w.writeUint8(TcClassdesc)
	if err := enc.w.writeUTF(desc.Name); err != nil {
		return err
	}
	enc.w.writeInt64(desc.SerialVersionUID)
	enc.refs.registerClass(desc, enc.refs.assign())

	enc.w.writeUint8(desc.Flags)
	if len(desc.Fields) > math.MaxUint16 {
		return fmt.Errorf("%w: %d fields on %s", ErrUnsupportedValue, len(desc.Fields), desc.Name)
	}
	enc.w.writeUint16(uint16(len(desc.Fields)))
	for _, fd := range desc.Fields {
		enc.w.writeUint8(fd.TypeCode)
		if err := enc.w.writeUTF(fd.Name); err != nil {
			return err
		}
		if fd.HasTypeString() {
			if err := enc.writeString(fd.ClassName); err != nil {
				return err
			}
		}
	}

	// The class annotation terminator is unconditional, even when the
	// annotation list is empty.
	if err := enc.writeAnnotationList(desc.Annotations); err != nil {
		return err
	}
	return enc.writeClassDesc(desc.Super)
}

func (enc *Encoder) writeProxyClassDesc(desc *ClassDesc) error {
	enc.w.writeUint8(TcProxyclassdesc)
	enc.w.writeInt32(int32(len(desc.Interfaces)))
	for _, name := range desc.Interfaces {
		if err := enc.w.writeUTF(name); err != nil {
			return err
		}
	}
	enc.refs.registerClass(desc, enc.refs.assign())

	if err := enc.writeAnnotationList(desc.Annotations); err != nil {
		return err
	}
	return enc.writeClassDesc(desc.Super)
}

func (enc *Encoder) writeAnnotationList(items []Value) error {
	for _, item := range items {
		if err := enc.writeContent(item); err != nil {
			return err
		}
	}
	enc.w.writeUint8(TcEndblockdata)
	return nil
}

// writeObject encodes an ordinary object: descriptor, handle, field
// values in hierarchy order, then the flag-gated instance annotation.
// Objects alias by identity, never by structural equality.
func (enc *Encoder) writeObject(obj *Object) error {
	if h, ok := enc.refs.objects[obj]; ok {
		enc.writeReference(h)
		return nil
	}
	if obj.Class == nil {
		return fmt.Errorf("%w: object without class descriptor", ErrUnsupportedValue)
	}
	enc.w.writeUint8(TcObject)
	if err := enc.writeClassDesc(obj.Class); err != nil {
		return err
	}
	enc.refs.objects[obj] = enc.refs.assign()

	// The value model keeps one flat annotation list per object. When
	// several classes in the hierarchy carry ScWriteMethod the whole
	// list is emitted at the first of them; observed streams only ever
	// have one write-method class per chain.
	annotationsWritten := false
	next := 0
	for _, cls := range obj.Class.Hierarchy() {
		for _, fd := range cls.Fields {
			v, i := findSlot(obj.Fields, next, cls.Name, fd.Name)
			if i < 0 {
				return fmt.Errorf("%w: %s missing field %s.%s", ErrUnsupportedValue, obj.Class.Name, cls.Name, fd.Name)
			}
			if i == next {
				next++
			}
			if err := enc.writeFieldValue(fd, v); err != nil {
				return err
			}
		}
		if cls.HasWriteMethod() {
			items := obj.Annotations
			if annotationsWritten {
				items = nil
			}
			annotationsWritten = true
			if err := enc.writeAnnotationList(items); err != nil {
				return err
			}
		}
	}
	return nil
}

// findSlot locates the value for a declared field. Slots laid down by the
// decoder are positional; hand-built graphs may order them freely, so the
// fallback searches by declaring class and then by name alone.
func findSlot(slots []FieldSlot, next int, class, name string) (Value, int) {
	if next < len(slots) && slots[next].Name == name && (slots[next].Class == class || slots[next].Class == "") {
		return slots[next].Value, next
	}
	for i := range slots {
		if slots[i].Name == name && slots[i].Class == class {
			return slots[i].Value, i
		}
	}
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Name == name {
			return slots[i].Value, i
		}
	}
	return nil, -1
}

func (enc *Encoder) writeFieldValue(fd FieldDesc, v Value) error {
	switch fd.TypeCode {
	case TypeByte:
		t, ok := v.(Byte)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeUint8(byte(t))
	case TypeChar:
		t, ok := v.(Char)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeUint16(uint16(t))
	case TypeDouble:
		t, ok := v.(Double)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeFloat64(float64(t))
	case TypeFloat:
		t, ok := v.(Float)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeFloat32(float32(t))
	case TypeInt:
		t, ok := v.(Int)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeInt32(int32(t))
	case TypeLong:
		t, ok := v.(Long)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeInt64(int64(t))
	case TypeShort:
		t, ok := v.(Short)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		enc.w.writeInt16(int16(t))
	case TypeBoolean:
		t, ok := v.(Bool)
		if !ok {
			return enc.fieldTypeError(fd, v)
		}
		if t {
			enc.w.writeUint8(1)
		} else {
			enc.w.writeUint8(0)
		}
	case TypeObject, TypeArray:
		return enc.writeContent(v)
	default:
		return fmt.Errorf("%w: invalid field type code %q", ErrUnsupportedValue, fd.TypeCode)
	}
	return nil
}

func (enc *Encoder) fieldTypeError(fd FieldDesc, v Value) error {
	return fmt.Errorf("%w: field %s expects type code %q, got %T", ErrUnsupportedValue, fd.Name, fd.TypeCode, v)
}

func (enc *Encoder) writeArray(arr *Array) error {
	if h, ok := enc.refs.objects[arr]; ok {
		enc.writeReference(h)
		return nil
	}
	if arr.Class == nil {
		return fmt.Errorf("%w: array without class descriptor", ErrUnsupportedValue)
	}
	enc.w.writeUint8(TcArray)
	if err := enc.writeClassDesc(arr.Class); err != nil {
		return err
	}
	enc.refs.objects[arr] = enc.refs.assign()

	enc.w.writeInt32(int32(len(arr.Elements)))
	elem := FieldDesc{TypeCode: arr.Class.ElementType(), Name: "<element>"}
	for _, v := range arr.Elements {
		if err := enc.writeFieldValue(elem, v); err != nil {
			return err
		}
	}
	return nil
}

func (enc *Encoder) writeEnum(e *Enum) error {
	if h, ok := enc.refs.objects[e]; ok {
		enc.writeReference(h)
		return nil
	}
	if e.Class == nil {
		return fmt.Errorf("%w: enum without class descriptor", ErrUnsupportedValue)
	}
	enc.w.writeUint8(TcEnum)
	if err := enc.writeClassDesc(e.Class); err != nil {
		return err
	}
	enc.refs.objects[e] = enc.refs.assign()
	return enc.writeString(e.Constant)
}

func (enc *Encoder) writeClass(c *Class) error {
	if h, ok := enc.refs.objects[c]; ok {
		enc.writeReference(h)
		return nil
	}
	if c.Desc == nil {
		return fmt.Errorf("%w: Class object without descriptor", ErrUnsupportedValue)
	}
	enc.w.writeUint8(TcClass)
	if err := enc.writeClassDesc(c.Desc); err != nil {
		return err
	}
	enc.refs.objects[c] = enc.refs.assign()
	return nil
}
