package javaio

import (
	"errors"
	"fmt"
)

// Decoder turns a serialized byte stream into a Value graph. A Decoder
// owns its handle table for the duration of one stream and must not be
// shared across goroutines; concurrent decodes each get their own
// Decoder.
type Decoder struct {
	cur        *cursor
	handles    handleTable
	unresolved []uint32
	headerRead bool
}

// Decode parses the stream header and one top-level content element.
func Decode(data []byte) (Value, error) {
	return NewDecoder(data).Decode()
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{cur: newCursor(data)}
}

// Offset reports the current byte offset, useful after a failed decode to
// locate the fault.
func (dec *Decoder) Offset() int { return dec.cur.offset() }

// More reports whether undecoded bytes remain. The format allows a stream
// to carry a sequence of top-level elements; observed files carry exactly
// one.
func (dec *Decoder) More() bool { return dec.cur.remaining() > 0 }

// Unresolved lists the handles of references that did not resolve during
// decode. Each produced a dangling *Ref in the graph instead of aborting
// the decode.
func (dec *Decoder) Unresolved() []uint32 { return dec.unresolved }

// HandleCount reports how many handles have been assigned since the last
// reset.
func (dec *Decoder) HandleCount() int { return len(dec.handles.entries) }

// Decode reads the stream header (first call only) and the next
// top-level content element. Failures carry the byte offset and the last
// assigned handle via *StreamError.
func (dec *Decoder) Decode() (Value, error) {
	if !dec.headerRead {
		if err := dec.readHeader(); err != nil {
			return nil, dec.fail(err)
		}
		dec.headerRead = true
	}
	v, err := dec.readContent()
	if err != nil {
		return nil, dec.fail(err)
	}
	return v, nil
}

func (dec *Decoder) fail(err error) error {
	var se *StreamError
	if errors.As(err, &se) {
		return err
	}
	return &StreamError{Offset: dec.cur.offset(), LastHandle: dec.handles.last(), Err: err}
}

func (dec *Decoder) readHeader() error {
	magic, err := dec.cur.readUint16()
	if err != nil {
		return err
	}
	version, err := dec.cur.readUint16()
	if err != nil {
		return err
	}
	if magic != StreamMagic {
		return fmt.Errorf("%w: magic %#04x", ErrHeader, magic)
	}
	if version != StreamVersion {
		return fmt.Errorf("%w: version %#04x", ErrHeader, version)
	}
	return nil
}

// readContent decodes one content element, dispatching on its type code.
func (dec *Decoder) readContent() (Value, error) {
	tc, err := dec.cur.readUint8()
	if err != nil {
		return nil, err
	}
	switch tc {
	case TcNull:
		return Null{}, nil
	case TcReference:
		return dec.readPrevObject()
	case TcString:
		s, err := dec.cur.readUTF()
		if err != nil {
			return nil, err
		}
		dec.handles.assign(String(s))
		return String(s), nil
	case TcLongstring:
		s, err := dec.cur.readLongUTF()
		if err != nil {
			return nil, err
		}
		dec.handles.assign(String(s))
		return String(s), nil
	case TcClassdesc:
		return dec.readNewClassDesc()
	case TcProxyclassdesc:
		return dec.readNewProxyClassDesc()
	case TcObject:
		return dec.readNewObject()
	case TcArray:
		return dec.readNewArray()
	case TcEnum:
		return dec.readNewEnum()
	case TcClass:
		return dec.readNewClass()
	case TcBlockdata:
		n, err := dec.cur.readUint8()
		if err != nil {
			return nil, err
		}
		p, err := dec.cur.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		return BlockData{Data: append([]byte(nil), p...)}, nil
	case TcBlockdatalong:
		n, err := dec.cur.readInt32()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative block data length %d", ErrMalformed, n)
		}
		p, err := dec.cur.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		return BlockData{Data: append([]byte(nil), p...), Long: true}, nil
	case TcEndblockdata:
		// Annotation loops peek before consuming, so this only escapes
		// into value position on a malformed stream. The original
		// reader treats it as null; so do we.
		return Null{}, nil
	case TcReset:
		dec.handles.reset()
		return dec.readContent()
	case TcException:
		return nil, fmt.Errorf("%w: TC_EXCEPTION in stream", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: invalid type code %#02x", ErrMalformed, tc)
	}
}

// readPrevObject resolves a back-reference. Strings and class descriptors
// resolve eagerly (neither can participate in a cycle); composites stay
// behind a *Ref node. An unknown handle yields a dangling *Ref and is
// recorded, not fatal: captured files have been observed with broken
// references inside block-data subsections, and those must not block
// inspection of the rest of the graph.
func (dec *Decoder) readPrevObject() (Value, error) {
	h, err := dec.cur.readUint32()
	if err != nil {
		return nil, err
	}
	v, ok := dec.handles.resolve(h)
	if !ok {
		dec.unresolved = append(dec.unresolved, h)
		return &Ref{Handle: h}, nil
	}
	switch t := v.(type) {
	case String:
		return t, nil
	case *ClassDesc:
		return t, nil
	default:
		return &Ref{Handle: h, Target: v}, nil
	}
}

// readClassDesc decodes the classdesc production: null, a new (proxy)
// descriptor, or a back-reference to one.
func (dec *Decoder) readClassDesc() (*ClassDesc, error) {
	tc, err := dec.cur.readUint8()
	if err != nil {
		return nil, err
	}
	switch tc {
	case TcNull:
		return nil, nil
	case TcClassdesc:
		return dec.readNewClassDesc()
	case TcProxyclassdesc:
		return dec.readNewProxyClassDesc()
	case TcReference:
		h, err := dec.cur.readUint32()
		if err != nil {
			return nil, err
		}
		v, ok := dec.handles.resolve(h)
		if !ok {
			// Without the field layout there is no way to continue
			// structurally, so unlike value references this is fatal.
			return nil, fmt.Errorf("%w: class descriptor reference to unknown handle %#x", ErrMalformed, h)
		}
		switch t := v.(type) {
		case *ClassDesc:
			return t, nil
		case *Class:
			return t.Desc, nil
		default:
			return nil, fmt.Errorf("%w: reference %#x is not a class descriptor", ErrMalformed, h)
		}
	default:
		return nil, fmt.Errorf("%w: expected class descriptor, got type code %#02x", ErrMalformed, tc)
	}
}

// readNewClassDesc decodes a TC_CLASSDESC body. The handle is assigned
// after the name and version tag but before the field table, so a field
// type string may reference the class being defined.
func (dec *Decoder) readNewClassDesc() (*ClassDesc, error) {
	name, err := dec.cur.readUTF()
	if err != nil {
		return nil, err
	}
	suid, err := dec.cur.readInt64()
	if err != nil {
		return nil, err
	}
	desc := &ClassDesc{Name: name, SerialVersionUID: suid}
	desc.Handle = dec.handles.assign(desc)

	flags, err := dec.cur.readUint8()
	if err != nil {
		return nil, err
	}
	desc.Flags = flags

	numFields, err := dec.cur.readUint16()
	if err != nil {
		return nil, err
	}
	desc.Fields = make([]FieldDesc, 0, int(numFields))
	for i := 0; i < int(numFields); i++ {
		tcode, err := dec.cur.readUint8()
		if err != nil {
			return nil, err
		}
		fname, err := dec.cur.readUTF()
		if err != nil {
			return nil, err
		}
		fd := FieldDesc{TypeCode: tcode, Name: fname}
		if fd.HasTypeString() {
			fd.ClassName, err = dec.readTypeString()
			if err != nil {
				return nil, err
			}
		}
		desc.Fields = append(desc.Fields, fd)
	}

	desc.Annotations, err = dec.readAnnotationList()
	if err != nil {
		return nil, err
	}
	desc.Super, err = dec.readClassDesc()
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// readNewProxyClassDesc decodes a TC_PROXYCLASSDESC body: an interface
// list instead of a name and field table. The descriptor is treated like
// a named one for handle assignment, annotation framing and superclass
// chaining, with a forced serializable flag and no fields.
func (dec *Decoder) readNewProxyClassDesc() (*ClassDesc, error) {
	n, err := dec.cur.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative proxy interface count %d", ErrMalformed, n)
	}
	interfaces := make([]string, 0, int(n))
	for i := 0; i < int(n); i++ {
		name, err := dec.cur.readUTF()
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, name)
	}
	desc := &ClassDesc{
		Name:       proxyName(interfaces),
		Flags:      ScSerializable,
		Proxy:      true,
		Interfaces: interfaces,
	}
	desc.Handle = dec.handles.assign(desc)

	desc.Annotations, err = dec.readAnnotationList()
	if err != nil {
		return nil, err
	}
	desc.Super, err = dec.readClassDesc()
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// readTypeString decodes the type string of an object or array field.
// Only TC_STRING and TC_REFERENCE may appear here.
func (dec *Decoder) readTypeString() (string, error) {
	tc, err := dec.cur.readUint8()
	if err != nil {
		return "", err
	}
	switch tc {
	case TcString:
		s, err := dec.cur.readUTF()
		if err != nil {
			return "", err
		}
		dec.handles.assign(String(s))
		return s, nil
	case TcReference:
		h, err := dec.cur.readUint32()
		if err != nil {
			return "", err
		}
		v, ok := dec.handles.resolve(h)
		if !ok {
			dec.unresolved = append(dec.unresolved, h)
			return fmt.Sprintf("<ref:%#x>", h), nil
		}
		s, ok := v.(String)
		if !ok {
			return "", fmt.Errorf("%w: type string reference %#x is not a string", ErrMalformed, h)
		}
		return string(s), nil
	default:
		return "", fmt.Errorf("%w: expected type string, got type code %#02x", ErrMalformed, tc)
	}
}

// readAnnotationList decodes content elements until the end-of-block
// sentinel, peeking each tag first so the sentinel is consumed exactly
// once and nothing past it.
func (dec *Decoder) readAnnotationList() ([]Value, error) {
	var items []Value
	for {
		tc, err := dec.cur.peekUint8()
		if err != nil {
			return nil, err
		}
		if tc == TcEndblockdata {
			_, _ = dec.cur.readUint8()
			return items, nil
		}
		v, err := dec.readContent()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

// readNewObject decodes a TC_OBJECT body: descriptor, handle, then field
// values in hierarchy order with flag-gated instance annotations.
func (dec *Decoder) readNewObject() (Value, error) {
	desc, err := dec.readClassDesc()
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return Null{}, nil
	}
	obj := &Object{Class: desc}
	obj.Handle = dec.handles.assign(obj)

	for _, cls := range desc.Hierarchy() {
		for _, fd := range cls.Fields {
			v, err := dec.readFieldValue(fd)
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, FieldSlot{Class: cls.Name, Name: fd.Name, Value: v})
		}
		if cls.HasWriteMethod() {
			items, err := dec.readAnnotationList()
			if err != nil {
				return nil, err
			}
			obj.Annotations = append(obj.Annotations, items...)
		}
	}
	return obj, nil
}

func (dec *Decoder) readFieldValue(fd FieldDesc) (Value, error) {
	switch fd.TypeCode {
	case TypeByte:
		v, err := dec.cur.readUint8()
		return Byte(v), err
	case TypeChar:
		v, err := dec.cur.readUint16()
		return Char(v), err
	case TypeDouble:
		v, err := dec.cur.readFloat64()
		return Double(v), err
	case TypeFloat:
		v, err := dec.cur.readFloat32()
		return Float(v), err
	case TypeInt:
		v, err := dec.cur.readInt32()
		return Int(v), err
	case TypeLong:
		v, err := dec.cur.readInt64()
		return Long(v), err
	case TypeShort:
		v, err := dec.cur.readInt16()
		return Short(v), err
	case TypeBoolean:
		v, err := dec.cur.readUint8()
		return Bool(v != 0), err
	case TypeObject, TypeArray:
		return dec.readContent()
	default:
		return nil, fmt.Errorf("%w: invalid field type code %q", ErrMalformed, fd.TypeCode)
	}
}

// readNewArray decodes a TC_ARRAY body. The element decode rule follows
// the element type character in the descriptor name.
func (dec *Decoder) readNewArray() (Value, error) {
	desc, err := dec.readClassDesc()
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, fmt.Errorf("%w: array with null class descriptor", ErrMalformed)
	}
	arr := &Array{Class: desc}
	arr.Handle = dec.handles.assign(arr)

	n, err := dec.cur.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative array length %d", ErrMalformed, n)
	}
	elem := FieldDesc{TypeCode: desc.ElementType()}
	arr.Elements = make([]Value, 0, int(n))
	for i := 0; i < int(n); i++ {
		v, err := dec.readFieldValue(elem)
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, v)
	}
	return arr, nil
}

// readNewEnum decodes a TC_ENUM body: descriptor, handle, then one
// content element that must resolve to the constant name.
func (dec *Decoder) readNewEnum() (Value, error) {
	desc, err := dec.readClassDesc()
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, fmt.Errorf("%w: enum with null class descriptor", ErrMalformed)
	}
	e := &Enum{Class: desc}
	e.Handle = dec.handles.assign(e)

	v, err := dec.readContent()
	if err != nil {
		return nil, err
	}
	s, ok := v.(String)
	if !ok {
		return nil, fmt.Errorf("%w: enum constant is not a string", ErrMalformed)
	}
	e.Constant = string(s)
	return e, nil
}

// readNewClass decodes a TC_CLASS body: a Class object wrapper with its
// own handle, distinct from the descriptor's.
func (dec *Decoder) readNewClass() (Value, error) {
	desc, err := dec.readClassDesc()
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, fmt.Errorf("%w: Class object with null descriptor", ErrMalformed)
	}
	c := &Class{Desc: desc}
	c.Handle = dec.handles.assign(c)
	return c, nil
}
