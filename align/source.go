package align

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"

	"pagestyle/archive"
)

// source is a place pages are read from: directory tree or zip archive.
// All names are slash separated and relative to the source root.
type source interface {
	// list returns names of regular files which base names match glob
	// pattern in natural order.
	list(pattern string) ([]string, error)
	// read returns file content, missing file is reported with fs.ErrNotExist.
	read(name string) ([]byte, error)
	// String describes source for logging.
	String() string
	Close() error
}

// openSource determines what src points to. It could be directory, zip
// archive or path inside zip archive.
func openSource(src string) (source, error) {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return nil, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return &dirSource{root: head}, nil
		}

		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return nil, fmt.Errorf("unable to check archive type: %w", err)
		}
		if !arc {
			return nil, fmt.Errorf("input is neither directory nor zip archive (%s)", head)
		}
		r, err := archive.Open(head)
		if err != nil {
			return nil, fmt.Errorf("unable to open archive: %w", err)
		}
		prefix := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		return &zipSource{r: r, prefix: prefix}, nil
	}
	return nil, fmt.Errorf("input source was not found (%s)", src)
}

// isArchiveFile checks file content, extension alone is not trusted.
func isArchiveFile(name string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		return false, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// filetype needs at most 262 bytes to make a decision
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

func naturalCompare(a, b string) int {
	switch {
	case a == b:
		return 0
	case natural.Less(a, b):
		return -1
	default:
		return 1
	}
}

type dirSource struct {
	root string
}

func (s *dirSource) String() string {
	return s.root
}

func (s *dirSource) Close() error {
	return nil
}

func (s *dirSource) list(pattern string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, err := path.Match(pattern, d.Name()); err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		} else if !ok {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(names, naturalCompare)
	return names, nil
}

func (s *dirSource) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *dirSource) read(name string) ([]byte, error) {
	return os.ReadFile(s.path(name))
}

type zipSource struct {
	r      *archive.Reader
	prefix string
}

func (s *zipSource) String() string {
	return filepath.Join(s.r.Name(), filepath.FromSlash(s.prefix))
}

func (s *zipSource) Close() error {
	return s.r.Close()
}

func (s *zipSource) list(pattern string) ([]string, error) {
	var names []string
	err := s.r.Walk(pattern, func(_ string, f *zip.File) error {
		if rel, ok := strings.CutPrefix(f.Name, s.prefix); ok {
			names = append(names, rel)
		}
		return nil
	})
	return names, err
}

func (s *zipSource) read(name string) ([]byte, error) {
	data, err := s.r.ReadFile(s.prefix + name)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}
	return data, err
}
