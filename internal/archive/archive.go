// Package archive exposes bundled boundary archives through a minimal
// "list entries / read entry" abstraction so the map cache does not care
// whether entries come from a zip file or an exported directory.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrEntryNotFound is returned by Read when the archive has no entry with the given name.
var ErrEntryNotFound = errors.New("archive: entry not found")

// Archive is a read-only set of named entries. Implementations are safe for concurrent use.
type Archive interface {
	// Entries returns all entry names, slash separated, sorted ascending.
	Entries() []string
	// Read returns the raw bytes of an entry or ErrEntryNotFound.
	Read(name string) ([]byte, error)
	Close() error
}

// Zip is an Archive backed by a zip file. zip.Reader is safe for concurrent
// reads because every Open uses its own section reader.
type Zip struct {
	r      *zip.Reader
	closer io.Closer
	files  map[string]*zip.File
	names  []string
}

// OpenZip opens the zip file at path.
func OpenZip(path string) (*Zip, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip %s: %w", path, err)
	}
	z := newZip(&rc.Reader)
	z.closer = rc
	return z, nil
}

// NewZip wraps an in-memory zip image, mostly for tests and embedded data.
func NewZip(b []byte) (*Zip, error) {
	r, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("reading zip: %w", err)
	}
	return newZip(r), nil
}

func newZip(r *zip.Reader) *Zip {
	z := &Zip{r: r, files: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := normalizeName(f.Name)
		z.files[name] = f
		z.names = append(z.names, name)
	}
	sort.Strings(z.names)
	return z
}

func (z *Zip) Entries() []string { return append([]string(nil), z.names...) }

func (z *Zip) Read(name string) ([]byte, error) {
	f, ok := z.files[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (z *Zip) Close() error {
	if z.closer == nil {
		return nil
	}
	return z.closer.Close()
}

// Dir is an Archive over an extracted directory tree, e.g. the output of an export.
type Dir struct {
	root  string
	names []string
}

// OpenDir snapshots the file list under root; files added later are not visible.
func OpenDir(root string) (*Dir, error) {
	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(names)
	return &Dir{root: root, names: names}, nil
}

func (d *Dir) Entries() []string { return append([]string(nil), d.names...) }

func (d *Dir) Read(name string) ([]byte, error) {
	clean := normalizeName(name)
	if clean == "" || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	b, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return b, err
}

func (d *Dir) Close() error { return nil }

func normalizeName(name string) string {
	n := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	n = strings.TrimPrefix(n, "/")
	if n == "." {
		return ""
	}
	return n
}
