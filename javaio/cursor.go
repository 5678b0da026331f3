package javaio

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// cursor is a sequential big-endian reader over an in-memory byte buffer.
// It is the only I/O primitive of the codec; every read failure is a
// truncation reported with the offset at which it happened.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) offset() int { return c.off }

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) readBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}
	if c.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %#x, have %d", ErrTruncated, n, c.off, c.remaining())
	}
	p := c.buf[c.off : c.off+n]
	c.off += n
	return p, nil
}

func (c *cursor) readUint8() (byte, error) {
	p, err := c.readBytes(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// peekUint8 looks one byte ahead without consuming it. Annotation loops
// need this to spot the end-of-block sentinel before committing to a full
// content element.
func (c *cursor) peekUint8() (byte, error) {
	if c.remaining() < 1 {
		return 0, fmt.Errorf("%w: need 1 byte at offset %#x", ErrTruncated, c.off)
	}
	return c.buf[c.off], nil
}

func (c *cursor) readUint16() (uint16, error) {
	p, err := c.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

func (c *cursor) readInt16() (int16, error) {
	v, err := c.readUint16()
	return int16(v), err
}

func (c *cursor) readUint32() (uint32, error) {
	p, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func (c *cursor) readInt32() (int32, error) {
	v, err := c.readUint32()
	return int32(v), err
}

func (c *cursor) readInt64() (int64, error) {
	p, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p)), nil
}

func (c *cursor) readFloat32() (float32, error) {
	v, err := c.readUint32()
	return math.Float32frombits(v), err
}

func (c *cursor) readFloat64() (float64, error) {
	p, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
}

// readUTF reads a short string: 2-byte length prefix followed by that many
// bytes of modified UTF-8.
func (c *cursor) readUTF() (string, error) {
	n, err := c.readUint16()
	if err != nil {
		return "", err
	}
	p, err := c.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return decodeModifiedUTF8(p), nil
}

// readLongUTF reads a long string: 8-byte length prefix followed by the
// payload.
func (c *cursor) readLongUTF() (string, error) {
	n, err := c.readInt64()
	if err != nil {
		return "", err
	}
	if n < 0 || n > int64(c.remaining()) {
		return "", fmt.Errorf("%w: long string of %d bytes at offset %#x", ErrTruncated, n, c.off)
	}
	p, err := c.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return decodeModifiedUTF8(p), nil
}

// decodeModifiedUTF8 interprets string payload bytes as UTF-8 and falls
// back to a byte-preserving Latin-1 read when the payload is not valid
// UTF-8. The fallback is a normal path for this format, not an error:
// modified UTF-8 admits sequences (unpaired surrogates, two-byte NUL) that
// Go's utf8 package rejects, and a string decode must never abort an
// otherwise valid stream.
func decodeModifiedUTF8(p []byte) string {
	if utf8.Valid(p) {
		return string(p)
	}
	runes := make([]rune, len(p))
	for i, b := range p {
		runes[i] = rune(b)
	}
	return string(runes)
}

// writer is the mirrored big-endian append writer. It never fails; the
// encoder validates graph shapes before emitting bytes.
type writer struct {
	buf []byte
}

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) writeBytes(p []byte) { w.buf = append(w.buf, p...) }

func (w *writer) writeUint8(v byte) { w.buf = append(w.buf, v) }

func (w *writer) writeUint16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *writer) writeInt16(v int16) { w.writeUint16(uint16(v)) }

func (w *writer) writeUint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *writer) writeInt32(v int32) { w.writeUint32(uint32(v)) }

func (w *writer) writeInt64(v int64) { w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v)) }

func (w *writer) writeFloat32(v float32) { w.writeUint32(math.Float32bits(v)) }

func (w *writer) writeFloat64(v float64) { w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v)) }

func (w *writer) writeUTF(s string) error {
	p := []byte(s)
	if len(p) > math.MaxUint16 {
		return fmt.Errorf("%w: string of %d bytes exceeds short form", ErrUnsupportedValue, len(p))
	}
	w.writeUint16(uint16(len(p)))
	w.writeBytes(p)
	return nil
}

func (w *writer) writeLongUTF(s string) {
	p := []byte(s)
	w.writeInt64(int64(len(p)))
	w.writeBytes(p)
}
