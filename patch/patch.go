// Package patch rewrites length-prefixed string literals directly in an
// encoded stream, without a full decode. It pattern-matches TC_STRING
// records (tag 0x74, 2-byte big-endian length, UTF-8 payload) and splices
// replacements in place, shifting all subsequent bytes.
package patch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/robopat/bwnkit/javaio"
)

// maxStringLength bounds the lengths accepted during a raw scan. A
// TC_STRING tag byte can also occur inside arbitrary payload bytes, so
// the scan filters candidates by a sane bound and printability instead
// of trusting every 0x74.
const maxStringLength = 500

// StringLocation is one string record found in the encoded bytes.
type StringLocation struct {
	// Offset of the TC_STRING tag byte.
	Offset int
	// Length of the UTF-8 payload in bytes.
	Length int
	// Value is the decoded payload.
	Value string
	// End is the offset one past the payload.
	End int
}

// Patcher edits string records of an encoded stream in place.
type Patcher struct {
	data []byte
}

// New wraps encoded stream bytes for patching. The bytes are copied; the
// caller's slice is never modified.
func New(data []byte) *Patcher {
	return &Patcher{data: append([]byte(nil), data...)}
}

// Bytes returns the current (possibly patched) stream bytes.
func (p *Patcher) Bytes() []byte { return p.data }

// stringAt reads the string record whose tag byte sits at off, if a
// plausible one is there.
func stringAt(data []byte, off int) (StringLocation, bool) {
	if off < 0 || off+3 > len(data) || data[off] != javaio.TcString {
		return StringLocation{}, false
	}
	n := int(binary.BigEndian.Uint16(data[off+1 : off+3]))
	if n < 1 || n > maxStringLength || off+3+n > len(data) {
		return StringLocation{}, false
	}
	payload := data[off+3 : off+3+n]
	if !utf8.Valid(payload) {
		return StringLocation{}, false
	}
	return StringLocation{
		Offset: off,
		Length: n,
		Value:  string(payload),
		End:    off + 3 + n,
	}, true
}

// plausibleText filters scan hits down to human-meaningful strings.
func plausibleText(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// FindStrings scans the whole buffer for plausible string records. The
// scan is heuristic by design: it is used for inspection and batch
// replacement, and a false positive is harmless as long as replacements
// target exact values.
func (p *Patcher) FindStrings() []StringLocation {
	var out []StringLocation
	for i := 0; i+3 <= len(p.data); i++ {
		loc, ok := stringAt(p.data, i)
		if ok && plausibleText(loc.Value) {
			out = append(out, loc)
		}
	}
	return out
}

// FindAfterMarker locates the string record immediately following the
// first occurrence of marker. Key/value layouts put the value string
// right after its key's payload, so searching for the key bytes finds
// the value (e.g. marker "projectName").
func (p *Patcher) FindAfterMarker(marker string) (StringLocation, bool) {
	idx := indexOf(p.data, []byte(marker))
	if idx < 0 {
		return StringLocation{}, false
	}
	return stringAt(p.data, idx+len(marker))
}

func indexOf(data, sep []byte) int {
	return bytes.Index(data, sep)
}

// ReplaceAt splices a new payload into the string record at the given
// tag offset, rewriting the 2-byte length prefix and shifting the tail.
func (p *Patcher) ReplaceAt(offset int, newValue string) error {
	loc, ok := stringAt(p.data, offset)
	if !ok {
		return fmt.Errorf("patch: no string record at offset %#x", offset)
	}
	encoded := []byte(newValue)
	if len(encoded) > math.MaxUint16 {
		return fmt.Errorf("patch: replacement of %d bytes does not fit a short string", len(encoded))
	}
	out := make([]byte, 0, len(p.data)-loc.Length+len(encoded))
	out = append(out, p.data[:offset+1]...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(encoded)))
	out = append(out, encoded...)
	out = append(out, p.data[loc.End:]...)
	p.data = out
	return nil
}

// ReplaceString replaces occurrences of an exact string value. count
// bounds the number of replacements; -1 replaces all. Returns how many
// records were rewritten. Replacements run back to front so earlier
// offsets stay valid while the tail shifts.
func (p *Patcher) ReplaceString(oldValue, newValue string, count int) (int, error) {
	if oldValue == newValue {
		return 0, nil
	}
	var offsets []int
	for _, loc := range p.FindStrings() {
		if loc.Value == oldValue {
			offsets = append(offsets, loc.Offset)
		}
	}
	replaced := 0
	for i := len(offsets) - 1; i >= 0; i-- {
		if count >= 0 && replaced >= count {
			break
		}
		if err := p.ReplaceAt(offsets[i], newValue); err != nil {
			return replaced, err
		}
		replaced++
	}
	return replaced, nil
}

// ProjectName returns the value of the string following the
// "projectName" key, or empty when absent.
func (p *Patcher) ProjectName() string {
	loc, ok := p.FindAfterMarker("projectName")
	if !ok {
		return ""
	}
	return loc.Value
}

// SetProjectName rewrites the project name string.
func (p *Patcher) SetProjectName(name string) error {
	loc, ok := p.FindAfterMarker("projectName")
	if !ok {
		return fmt.Errorf("patch: projectName string not found")
	}
	return p.ReplaceAt(loc.Offset, name)
}

// TabTitle returns the title following the first inline "tabTitle" key.
// After its first occurrence the key string aliases to a back-reference,
// so later titles are not reachable without a full decode; callers that
// need every tab go through javaio and the script package instead.
func (p *Patcher) TabTitle() (string, bool) {
	loc, ok := p.FindAfterMarker("tabTitle")
	if !ok {
		return "", false
	}
	return loc.Value, true
}

// SetTabTitle rewrites a tab title found by its current value.
func (p *Patcher) SetTabTitle(oldTitle, newTitle string) error {
	n, err := p.ReplaceString(oldTitle, newTitle, 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("patch: tab title %q not found", oldTitle)
	}
	return nil
}
