package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZipEntriesAndRead(t *testing.T) {
	z, err := NewZip(buildZip(t, map[string]string{
		"states/act.geojson":     "act",
		"divisions/bass.geojson": "bass",
		"australia.geojson":      "aus",
	}))
	require.NoError(t, err)
	defer z.Close()

	assert.Equal(t, []string{"australia.geojson", "divisions/bass.geojson", "states/act.geojson"}, z.Entries())

	b, err := z.Read("divisions/bass.geojson")
	require.NoError(t, err)
	assert.Equal(t, "bass", string(b))

	b, err = z.Read("/states/act.geojson")
	require.NoError(t, err)
	assert.Equal(t, "act", string(b))

	_, err = z.Read("divisions/nowhere.geojson")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOpenZipFromDisk(t *testing.T) {
	p := filepath.Join(t.TempDir(), "maps.zip")
	require.NoError(t, os.WriteFile(p, buildZip(t, map[string]string{"australia.geojson": "{}"}), 0o644))

	z, err := OpenZip(p)
	require.NoError(t, err)
	defer z.Close()
	assert.Equal(t, []string{"australia.geojson"}, z.Entries())
}

func TestOpenZipMissingFile(t *testing.T) {
	_, err := OpenZip(filepath.Join(t.TempDir(), "absent.zip"))
	assert.Error(t, err)
}

func TestDirArchive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "divisions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "divisions", "bass.geojson"), []byte("bass"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "australia.geojson"), []byte("aus"), 0o644))

	d, err := OpenDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"australia.geojson", "divisions/bass.geojson"}, d.Entries())

	b, err := d.Read("divisions/bass.geojson")
	require.NoError(t, err)
	assert.Equal(t, "bass", string(b))

	_, err = d.Read("divisions/none.geojson")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = d.Read("../escape")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
