package javaio

import "strings"

// ClassDesc describes one class in a stream: its name, version tag,
// flags, declared fields and superclass chain. Descriptors are
// handle-addressable; the decoder shares one *ClassDesc across every
// back-reference to it, and the encoder deduplicates by identity and by
// name.
type ClassDesc struct {
	Name             string
	SerialVersionUID int64
	Flags            byte
	Fields           []FieldDesc

	// Super is the owned superclass descriptor, or nil at the root of
	// the hierarchy. The chain is finite and acyclic.
	Super *ClassDesc

	// Annotations is the class annotation block: a sequence of content
	// elements that follows the field table unconditionally, regardless
	// of flags, terminated on the wire by TC_ENDBLOCKDATA.
	Annotations []Value

	// Proxy marks a dynamic proxy descriptor. Proxies declare no name of
	// their own; Name is synthesized from the interface list, Flags is
	// forced to ScSerializable and Fields is empty.
	Proxy      bool
	Interfaces []string

	// Handle is the wire handle assigned during decode; zero for
	// descriptors built in memory.
	Handle uint32
}

// FieldDesc describes one declared field. ClassName is present only for
// object and array fields and holds the declared type descriptor string
// (e.g. "Ljava/lang/String;").
type FieldDesc struct {
	TypeCode  byte
	Name      string
	ClassName string
}

// HasTypeString reports whether the field carries a type string on the
// wire.
func (f FieldDesc) HasTypeString() bool {
	return f.TypeCode == TypeObject || f.TypeCode == TypeArray
}

func (d *ClassDesc) HasWriteMethod() bool   { return d.Flags&ScWriteMethod != 0 }
func (d *ClassDesc) IsSerializable() bool   { return d.Flags&ScSerializable != 0 }
func (d *ClassDesc) IsExternalizable() bool { return d.Flags&ScExternalizable != 0 }
func (d *ClassDesc) IsEnum() bool           { return d.Flags&ScEnum != 0 }

// Hierarchy returns the descriptor chain ordered for field I/O: the
// root-most superclass first, the descriptor itself last.
func (d *ClassDesc) Hierarchy() []*ClassDesc {
	var chain []*ClassDesc
	for cur := d; cur != nil; cur = cur.Super {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// ElementType returns the array element type code encoded in the
// descriptor name: the character following the leading '[', or TypeObject
// when the name is not an array descriptor.
func (d *ClassDesc) ElementType() byte {
	if len(d.Name) >= 2 && d.Name[0] == '[' {
		return d.Name[1]
	}
	return TypeObject
}

// proxyName synthesizes a display name for a proxy descriptor from its
// interface list.
func proxyName(interfaces []string) string {
	return "$Proxy[" + strings.Join(interfaces, ",") + "]"
}
