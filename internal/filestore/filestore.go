// Package filestore retains the raw bytes of uploaded spreadsheets in a local
// directory so ingestions can be replayed and audited after the fact.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Storage is the retention surface handlers and background jobs share.
type Storage interface {
	// Save writes the content under the given filename, replacing any
	// previous copy, and returns the absolute path.
	Save(filename string, r io.Reader) (string, error)

	// Open opens a retained file for reading. The caller closes it.
	Open(filename string) (io.ReadCloser, error)

	// Exists reports whether a retained file with this name is present.
	Exists(filename string) bool

	// List returns the retained filenames, sorted.
	List() ([]string, error)
}

// Dir is a Storage backed by one local directory.
type Dir struct {
	root string
}

// NewDir creates the directory if needed and returns a store over it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("NewDir: creating %q: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Save writes the content under filename, replacing any previous copy.
func (d *Dir) Save(filename string, r io.Reader) (string, error) {
	path, err := d.resolve(filename)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("Save: creating %q: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("Save: writing %q: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("Save: finalizing %q: %w", path, err)
	}
	return path, nil
}

// Open opens a retained file for reading.
func (d *Dir) Open(filename string) (io.ReadCloser, error) {
	path, err := d.resolve(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	return f, nil
}

// Exists reports whether a retained file with this name is present.
func (d *Dir) Exists(filename string) bool {
	path, err := d.resolve(filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// List returns the retained filenames, sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// resolve rejects names that would escape the root directory.
func (d *Dir) resolve(filename string) (string, error) {
	base := filepath.Base(filename)
	if base != filename || base == "." || base == ".." || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(d.root, base), nil
}

var _ Storage = (*Dir)(nil)
