// Package bwnp reads and writes .bwnp containers: a zip archive holding
// the serialized script as <project>.bwn plus the screenshots it
// references under <project>/*.png.
package bwnp

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/zeebo/blake3"
)

// Archive is the unpacked form of a .bwnp container.
type Archive struct {
	ProjectName string

	// Script holds the .bwn stream bytes.
	Script []byte

	// Images maps screenshot file names (base names, .png) to their
	// contents.
	Images map[string][]byte
}

// Pack writes the archive as a .bwnp zip. Image entries are written in
// name order so packing is deterministic.
func Pack(w io.Writer, a *Archive) error {
	if a.ProjectName == "" {
		return fmt.Errorf("bwnp: missing project name")
	}
	if len(a.Script) == 0 {
		return fmt.Errorf("bwnp: missing script data")
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	if err := writeEntry(zw, a.ProjectName+".bwn", a.Script); err != nil {
		return err
	}
	names := make([]string, 0, len(a.Images))
	for name := range a.Images {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeEntry(zw, a.ProjectName+"/"+name, a.Images[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("bwnp: create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("bwnp: write %s: %w", name, err)
	}
	return nil
}

// Unpack reads a .bwnp container. Exactly one .bwn entry must be
// present; .png entries are collected by base name and anything else is
// ignored. Entry names only ever need their ASCII suffix examined, so
// legacy archives with non-UTF-8 names unpack fine.
func Unpack(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("bwnp: open archive: %w", err)
	}

	a := &Archive{Images: make(map[string][]byte)}
	for _, f := range zr.File {
		switch {
		case strings.HasSuffix(f.Name, ".bwn"):
			if a.Script != nil {
				return nil, fmt.Errorf("bwnp: multiple .bwn entries")
			}
			a.ProjectName = strings.TrimSuffix(path.Base(f.Name), ".bwn")
			if a.Script, err = readEntry(f); err != nil {
				return nil, err
			}
		case strings.HasSuffix(f.Name, ".png"):
			img, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			a.Images[path.Base(f.Name)] = img
		}
	}
	if a.Script == nil {
		return nil, fmt.Errorf("bwnp: no .bwn entry in archive")
	}
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("bwnp: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("bwnp: read %s: %w", f.Name, err)
	}
	return data, nil
}

// Rewrite unpacks a container, hands the archive to fn for editing, and
// re-packs it. Renaming the project moves the script entry and the image
// folder along with it.
func Rewrite(data []byte, fn func(*Archive) error) ([]byte, error) {
	a, err := Unpack(data)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Pack(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Entry describes one archive member for inspection.
type Entry struct {
	Name           string
	Size           int64
	CompressedSize int64

	// Digest is the BLAKE3 digest of the uncompressed contents, in
	// "blake3:<hex>" form.
	Digest string
}

// Inspect lists every entry of a .bwnp container with sizes and content
// digests, without interpreting any of them.
func Inspect(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("bwnp: open archive: %w", err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		contents, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		sum := blake3.Sum256(contents)
		entries = append(entries, Entry{
			Name:           f.Name,
			Size:           int64(f.UncompressedSize64),
			CompressedSize: int64(f.CompressedSize64),
			Digest:         "blake3:" + hex.EncodeToString(sum[:]),
		})
	}
	return entries, nil
}
