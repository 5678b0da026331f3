package javaio

import (
	"encoding/binary"
	"math"
)

// Byte-level fixture builders shared by the decoder, encoder and
// round-trip tests.

var header = []byte{0xac, 0xed, 0x00, 0x05}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u16b(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }
func u32b(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }
func i64b(v int64) []byte  { return binary.BigEndian.AppendUint64(nil, uint64(v)) }
func f32b(v float32) []byte {
	return binary.BigEndian.AppendUint32(nil, math.Float32bits(v))
}

func utfb(s string) []byte {
	return cat(u16b(uint16(len(s))), []byte(s))
}

// hashMapFixture is a stream holding one object shaped like a serialized
// java.util.HashMap: class "X" with a write method, two declared fields,
// and an instance annotation carrying the capacity/size block followed by
// one key/value pair.
func hashMapFixture() []byte {
	return cat(
		header,
		[]byte{TcObject},
		[]byte{TcClassdesc},
		utfb("X"),
		i64b(1),
		[]byte{ScWriteMethod | ScSerializable},
		u16b(2),
		[]byte{TypeFloat}, utfb("loadFactor"),
		[]byte{TypeInt}, utfb("threshold"),
		[]byte{TcEndblockdata}, // class annotation
		[]byte{TcNull},         // no superclass
		f32b(0.75),
		u32b(12),
		[]byte{TcBlockdata, 8}, u32b(16), u32b(1),
		[]byte{TcString}, utfb("k"),
		[]byte{TcString}, utfb("v"),
		[]byte{TcEndblockdata}, // instance annotation
	)
}

// intArrayFixture is a stream holding one int[3]{1,2,3}.
func intArrayFixture() []byte {
	return cat(
		header,
		[]byte{TcArray},
		[]byte{TcClassdesc},
		utfb("[I"),
		i64b(1),
		[]byte{ScSerializable},
		u16b(0),
		[]byte{TcEndblockdata},
		[]byte{TcNull},
		u32b(3),
		u32b(1), u32b(2), u32b(3),
	)
}

// proxyFixture is a stream holding one proxy class descriptor over two
// interfaces.
func proxyFixture() []byte {
	return cat(
		header,
		[]byte{TcProxyclassdesc},
		u32b(2),
		utfb("com.example.A"),
		utfb("com.example.B"),
		[]byte{TcEndblockdata},
		[]byte{TcNull},
	)
}
