package align

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"book/page_1.json":  "1",
		"book/page_10.json": "10",
		"book/page_2.json":  "2",
		"book/page_2.csv":   "table",
		"other/page_1.json": "other",
	}
	writeFiles(t, filepath.Join(dir, "tree"), files)
	arc := filepath.Join(dir, "pages.zip")
	writeZip(t, arc, files)

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"directory", filepath.Join(dir, "tree"), []string{"book/page_1.json", "book/page_2.json", "book/page_10.json", "other/page_1.json"}},
		{"archive", arc, []string{"book/page_1.json", "book/page_2.json", "book/page_10.json", "other/page_1.json"}},
		{"path in archive", filepath.Join(arc, "book"), []string{"page_1.json", "page_2.json", "page_10.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := openSource(tt.src)
			if err != nil {
				t.Fatalf("openSource() error = %v", err)
			}
			defer s.Close()

			names, err := s.list("page_*.json")
			if err != nil {
				t.Fatalf("list() error = %v", err)
			}
			if !slices.Equal(names, tt.want) {
				t.Errorf("list() = %v, want %v", names, tt.want)
			}

			data, err := s.read(names[0])
			if err != nil {
				t.Fatalf("read() error = %v", err)
			}
			if len(data) == 0 {
				t.Error("read() returned no data")
			}

			if _, err := s.read("missing/page_1.csv"); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("read() of missing file error = %v, want fs.ErrNotExist", err)
			}
		})
	}
}

func TestOpenSource_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"tree/page_1.json": "{}",
		"fake.zip":         "definitely not an archive",
		"plain.txt":        "text",
	})

	tests := []struct {
		name string
		src  string
	}{
		{"missing", filepath.Join(dir, "missing")},
		{"file in directory", filepath.Join(dir, "tree", "nope", "page_1.json")},
		{"not an archive", filepath.Join(dir, "fake.zip")},
		{"plain file", filepath.Join(dir, "plain.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s, err := openSource(tt.src); err == nil {
				s.Close()
				t.Errorf("openSource(%q) expected error", tt.src)
			}
		})
	}
}

func TestDirSource_BadPattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"page_1.json": "{}"})

	s, err := openSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.list("page_[.json"); err == nil {
		t.Error("Expected error for bad pattern")
	}
}

func TestIsArchiveFile(t *testing.T) {
	dir := t.TempDir()
	arc := filepath.Join(dir, "pages.zip")
	writeZip(t, arc, map[string]string{"page_1.json": "{}"})

	renamed := filepath.Join(dir, "pages.bin")
	data, err := os.ReadFile(arc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(renamed, data, 0644); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, map[string]string{"short.zip": "PK"})

	tests := []struct {
		name string
		file string
		want bool
	}{
		{"zip", arc, true},
		{"wrong extension", renamed, false},
		{"truncated", filepath.Join(dir, "short.zip"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isArchiveFile(tt.file)
			if err != nil {
				t.Fatalf("isArchiveFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isArchiveFile() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := isArchiveFile(filepath.Join(dir, "missing.zip")); err == nil {
		t.Error("Expected error for missing file")
	}
}
