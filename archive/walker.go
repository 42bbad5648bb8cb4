// Package archive gives access to page files packed into zip archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// ErrNotFound is returned by ReadFile when archive has no requested entry.
var ErrNotFound = errors.New("entry not found in archive")

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk, the file argument is the zip.File structure for file in archive which
// satisfies match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Reader is an opened archive with entries indexed by name.
type Reader struct {
	name  string
	rc    *zip.ReadCloser
	files map[string]*zip.File
	order []*zip.File
}

// Open opens archive and verifies that none of its entries could escape
// extraction directory. Regular file entries are kept in natural name order.
func Open(archive string) (*Reader, error) {
	rc, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}

	r := &Reader{name: archive, rc: rc, files: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			rc.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		r.files[name] = f
		r.order = append(r.order, f)
	}
	slices.SortStableFunc(r.order, func(a, b *zip.File) int {
		switch {
		case a.Name == b.Name:
			return 0
		case natural.Less(a.Name, b.Name):
			return -1
		default:
			return 1
		}
	})
	return r, nil
}

// Close closes underlying archive.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Name returns path to archive.
func (r *Reader) Name() string {
	return r.name
}

// Walk calls walkFn for each regular entry which base name matches glob
// pattern. Empty pattern matches everything.
func (r *Reader) Walk(pattern string, walkFn WalkFunc) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	for _, f := range r.order {
		if pattern != "" {
			if ok, _ := path.Match(pattern, path.Base(f.Name)); !ok {
				continue
			}
		}
		if err := walkFn(r.name, f); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns entry by its full name inside archive or nil.
func (r *Reader) Lookup(name string) *zip.File {
	return r.files[name]
}

// ReadFile returns content of named entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	f := r.Lookup(name)
	if f == nil {
		return nil, fmt.Errorf("%s: %s: %w", r.name, name, ErrNotFound)
	}
	return ReadEntry(f)
}

// ReadEntry returns content of archive entry.
func ReadEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
