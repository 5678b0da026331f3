package bwnp

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/robopat/bwnkit/script"
)

func sampleArchive(t *testing.T) *Archive {
	t.Helper()
	data, err := script.Compile(&script.Script{
		ProjectName: "invoice run",
		Tabs: []script.Tab{
			{Title: "main tab", Commands: []script.Command{
				{Type: "comment", Comment: "open the portal", Enabled: true},
			}},
		},
	})
	require.NoError(t, err)
	return &Archive{
		ProjectName: "invoice run",
		Script:      data,
		Images: map[string][]byte{
			"bwn-1.png": []byte("not really a png"),
			"bwn-2.png": []byte("also not a png"),
		},
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	a := sampleArchive(t)
	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, a))

	got, err := Unpack(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a.ProjectName, got.ProjectName)
	assert.Equal(t, a.Script, got.Script)
	assert.Equal(t, a.Images, got.Images)

	// The packed script must still be a decodable stream.
	s, err := script.Parse(got.Script)
	require.NoError(t, err)
	assert.Equal(t, "invoice run", s.ProjectName)
}

func TestPackDeterministic(t *testing.T) {
	a := sampleArchive(t)
	var one, two bytes.Buffer
	require.NoError(t, Pack(&one, a))
	require.NoError(t, Pack(&two, a))
	assert.Equal(t, one.Bytes(), two.Bytes())
}

func TestPackValidation(t *testing.T) {
	var buf bytes.Buffer
	err := Pack(&buf, &Archive{Script: []byte{1}})
	assert.Error(t, err)
	err = Pack(&buf, &Archive{ProjectName: "p"})
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	a := sampleArchive(t)
	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, a))

	entries, err := Inspect(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "invoice run.bwn", entries[0].Name)
	assert.Equal(t, "invoice run/bwn-1.png", entries[1].Name)
	assert.Equal(t, "invoice run/bwn-2.png", entries[2].Name)

	sum := blake3.Sum256(a.Script)
	assert.Equal(t, "blake3:"+hex.EncodeToString(sum[:]), entries[0].Digest)
	assert.Equal(t, int64(len(a.Script)), entries[0].Size)
}

func TestUnpackIgnoresUnknownEntries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("p.bwn")
	require.NoError(t, err)
	_, err = w.Write([]byte{0xac, 0xed, 0x00, 0x05})
	require.NoError(t, err)
	w, err = zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("ignore me"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	a, err := Unpack(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "p", a.ProjectName)
	assert.Empty(t, a.Images)
}

func TestUnpackRejectsMultipleScripts(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"a.bwn", "b.bwn"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte{1})
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	_, err := Unpack(buf.Bytes())
	assert.Error(t, err)
}

func TestRewriteRenamesProject(t *testing.T) {
	a := sampleArchive(t)
	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, a))

	out, err := Rewrite(buf.Bytes(), func(a *Archive) error {
		a.ProjectName = "monthly close"
		return nil
	})
	require.NoError(t, err)

	entries, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, "monthly close.bwn", entries[0].Name)
	assert.Equal(t, "monthly close/bwn-1.png", entries[1].Name)

	got, err := Unpack(out)
	require.NoError(t, err)
	assert.Equal(t, a.Script, got.Script)
}

func TestUnpackMissingScript(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("p/bwn-1.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Unpack(buf.Bytes())
	assert.Error(t, err)
}
