package javaio

// Value is one node of the decoded object graph: the unit produced by
// decoding a single content element and consumed by the encoder. The set
// of implementations is closed; the encoder's dispatch is exhaustive over
// it.
type Value interface {
	isValue()
}

// Null is the TC_NULL value.
type Null struct{}

// Primitive field values. Widths are fixed by the field type code and are
// not configurable.
type (
	Bool   bool
	Byte   int8
	Char   uint16
	Short  int16
	Int    int32
	Long   int64
	Float  float32
	Double float64
)

// String is a decoded string value. Strings are deduplicated by content on
// encode, so a graph containing the same text twice re-encodes the second
// occurrence as a back-reference.
type String string

// BlockData is an opaque length-prefixed byte payload carried inside
// annotation sequences. Block data is not an addressable entity and never
// receives a handle. Long records whether the stream used the 4-byte
// length form; payloads over 255 bytes always encode long.
type BlockData struct {
	Data []byte
	Long bool
}

// Object is a decoded ordinary object: its class descriptor, one field
// slot per declared field across the hierarchy in superclass-first order,
// and the instance annotation items contributed by classes flagged with
// ScWriteMethod.
type Object struct {
	Class       *ClassDesc
	Fields      []FieldSlot
	Annotations []Value

	// Handle is the wire handle assigned during decode; zero for graphs
	// built in memory. The encoder assigns its own handles.
	Handle uint32
}

// FieldSlot is one declared field with its value. Slots are keyed by
// declaring class and name so a subclass may shadow an ancestor field
// without losing either value.
type FieldSlot struct {
	Class string
	Name  string
	Value Value
}

// Field returns the value of the named field. When the hierarchy declares
// the name more than once the most-derived slot wins.
func (o *Object) Field(name string) (Value, bool) {
	for i := len(o.Fields) - 1; i >= 0; i-- {
		if o.Fields[i].Name == name {
			return o.Fields[i].Value, true
		}
	}
	return nil, false
}

// SetField replaces the most-derived slot with the given name.
func (o *Object) SetField(name string, v Value) bool {
	for i := len(o.Fields) - 1; i >= 0; i-- {
		if o.Fields[i].Name == name {
			o.Fields[i].Value = v
			return true
		}
	}
	return false
}

// Array is a decoded array. Element decoding follows the element type
// encoded in the descriptor name.
type Array struct {
	Class    *ClassDesc
	Elements []Value
	Handle   uint32
}

// Enum is a decoded enum constant.
type Enum struct {
	Class    *ClassDesc
	Constant string
	Handle   uint32
}

// Class is a decoded Class object: a handle-addressable wrapper around a
// class descriptor. The wrapper's handle is distinct from the
// descriptor's own.
type Class struct {
	Desc   *ClassDesc
	Handle uint32
}

// Ref is a back-reference to a previously decoded composite entity. The
// graph keeps references lazy rather than inlining the resolved value, so
// cycles stay structurally broken. Target is nil for a dangling reference
// (see Decoder.Unresolved); encoding a dangling Ref fails.
type Ref struct {
	Handle uint32
	Target Value
}

// Reset models the TC_RESET control code: the handle table is discarded
// and assignment restarts at BaseWireHandle. The decoder honors resets
// transparently and never yields one; the encoder accepts a Reset node to
// emit the control code mid-stream.
type Reset struct{}

func (Null) isValue()       {}
func (Bool) isValue()       {}
func (Byte) isValue()       {}
func (Char) isValue()       {}
func (Short) isValue()      {}
func (Int) isValue()        {}
func (Long) isValue()       {}
func (Float) isValue()      {}
func (Double) isValue()     {}
func (String) isValue()     {}
func (BlockData) isValue()  {}
func (*Object) isValue()    {}
func (*Array) isValue()     {}
func (*Enum) isValue()      {}
func (*Class) isValue()     {}
func (*Ref) isValue()       {}
func (Reset) isValue()      {}
func (*ClassDesc) isValue() {}
