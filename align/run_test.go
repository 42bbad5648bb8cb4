package align

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"pagestyle/config"
	"pagestyle/state"
	"pagestyle/style"
)

const (
	tableHeader = "phrase;font_family;size;color_hex;style_tag;overrides\n"

	page1Table = tableHeader +
		"Lis vite;Arial;12;#231f20;regular;vite|Arial|12|#231f20|bold\n" +
		"Une fleur rose;Arial;12;#231f20;regular;fleur|Arial|12|#e6007e|regular\n"

	page1Tree = `[{"id": "p1", "instruction": "Lis vite", "content": {"statement": "Une fleur rose", "labels": ["rose", "  "]}}]`

	page1Styled = `[
  {
    "id": "p1",
    "instruction": "Lis \\bf{vite}",
    "content": {
      "statement": "Une \\color{\"fleur\", #e6007e} rose",
      "labels": [
        "rose",
        "  "
      ]
    }
  }
]
`
)

func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	if err := env.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return ctx, env
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func writeZip(t *testing.T, name string, files map[string]string) {
	t.Helper()
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for n, content := range files {
		fw, err := w.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readOutput(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("unable to read output: %v", err)
	}
	return string(data)
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := t.TempDir(), t.TempDir()

	writeFiles(t, src, map[string]string{
		"book/page_1.json": page1Tree,
		"book/page_1.csv":  page1Table,
		// malformed size
		"book/page_2.json": page1Tree,
		"book/page_2.csv":  tableHeader + "Lis vite;Arial;abc;#231f20;regular;\n",
		// no table
		"book/page_3.json": page1Tree,
		// not a tree
		"book/notes.txt": "ignored",
	})

	sum, err := process(ctx, src, src, dst, env, env.Log)
	if err == nil {
		t.Fatal("Expected error for malformed table")
	}
	if !errors.Is(err, style.ErrMalformedTable) {
		t.Errorf("Expected ErrMalformedTable, got %v", err)
	}
	if !strings.Contains(err.Error(), "page_2.json") {
		t.Errorf("Error does not name failed page: %v", err)
	}

	want := Summary{Styled: 1, Skipped: 1, Failed: 1, Nodes: 3}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}

	if got := readOutput(t, filepath.Join(dst, "book", "page_1--style.json")); got != page1Styled {
		t.Errorf("Styled output mismatch\ngot:\n%s\nwant:\n%s", got, page1Styled)
	}
	for _, name := range []string{"page_2--style.json", "page_3--style.json"} {
		if _, err := os.Stat(filepath.Join(dst, "book", name)); !os.IsNotExist(err) {
			t.Errorf("Unexpected output %s: %v", name, err)
		}
	}
}

func TestProcess_NoPages(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()

	sum, err := process(ctx, src, src, t.TempDir(), env, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("Summary = %+v, want empty", sum)
	}
}

func TestProcess_SourceNotFound(t *testing.T) {
	ctx, env := setupTestEnv(t)

	if _, err := process(ctx, filepath.Join(t.TempDir(), "missing"), "", t.TempDir(), env, env.Log); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestProcess_Overwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{"page_1.json": page1Tree, "page_1.csv": page1Table})

	out := filepath.Join(dst, "page_1--style.json")
	writeFiles(t, dst, map[string]string{"page_1--style.json": "old"})

	sum, err := process(ctx, src, src, dst, env, env.Log)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Expected existing output error, got %v", err)
	}
	if sum.Failed != 1 {
		t.Errorf("Failed = %d, want 1", sum.Failed)
	}
	if got := readOutput(t, out); got != "old" {
		t.Errorf("Existing output modified: %q", got)
	}

	env.Overwrite = true
	if _, err := process(ctx, src, src, dst, env, env.Log); err != nil {
		t.Fatalf("process() with overwrite error = %v", err)
	}
	if got := readOutput(t, out); got != page1Styled {
		t.Errorf("Output was not overwritten: %q", got)
	}
}

func TestProcess_NoDirs(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.NoDirs = true
	src, dst := t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{"a/b/page_1.json": page1Tree, "a/b/page_1.csv": page1Table})

	if _, err := process(ctx, src, src, dst, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readOutput(t, filepath.Join(dst, "page_1--style.json")); got != page1Styled {
		t.Errorf("Output mismatch: %q", got)
	}
}

func TestProcess_DestinationInsideSource(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Overwrite = true
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"page_1.json": page1Tree, "page_1.csv": page1Table})

	for run := range 2 {
		sum, err := process(ctx, src, src, src, env, env.Log)
		if err != nil {
			t.Fatalf("run %d: process() error = %v", run, err)
		}
		if want := (Summary{Styled: 1, Nodes: 3}); sum != want {
			t.Errorf("run %d: Summary = %+v, want %+v", run, sum, want)
		}
	}
	if _, err := os.Stat(filepath.Join(src, "page_1--style--style.json")); !os.IsNotExist(err) {
		t.Errorf("Output of previous run was styled again: %v", err)
	}
}

func TestProcess_SeparateTables(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, tables, dst := t.TempDir(), t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{"ch1/page_1.json": page1Tree})
	writeFiles(t, tables, map[string]string{"ch1/page_1.csv": page1Table})

	sum, err := process(ctx, src, tables, dst, env, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if sum.Styled != 1 {
		t.Errorf("Styled = %d, want 1", sum.Styled)
	}
}

func TestProcess_Zip(t *testing.T) {
	files := map[string]string{
		"book/page_1.json":  page1Tree,
		"book/page_1.csv":   page1Table,
		"book/page_10.json": page1Tree,
		"book/page_10.csv":  page1Table,
	}

	t.Run("whole archive", func(t *testing.T) {
		ctx, env := setupTestEnv(t)
		arc, dst := filepath.Join(t.TempDir(), "pages.zip"), t.TempDir()
		writeZip(t, arc, files)

		sum, err := process(ctx, arc, arc, dst, env, env.Log)
		if err != nil {
			t.Fatalf("process() error = %v", err)
		}
		if sum.Styled != 2 || sum.Nodes != 6 {
			t.Errorf("Summary = %+v", sum)
		}
		for _, name := range []string{"page_1--style.json", "page_10--style.json"} {
			if got := readOutput(t, filepath.Join(dst, "book", name)); got != page1Styled {
				t.Errorf("%s mismatch: %q", name, got)
			}
		}
	})

	t.Run("path inside archive", func(t *testing.T) {
		ctx, env := setupTestEnv(t)
		arc, dst := filepath.Join(t.TempDir(), "pages.zip"), t.TempDir()
		writeZip(t, arc, files)
		src := filepath.Join(arc, "book")

		sum, err := process(ctx, src, src, dst, env, env.Log)
		if err != nil {
			t.Fatalf("process() error = %v", err)
		}
		if sum.Styled != 2 {
			t.Errorf("Styled = %d, want 2", sum.Styled)
		}
		if _, err := os.Stat(filepath.Join(dst, "page_1--style.json")); err != nil {
			t.Errorf("Expected output at destination root: %v", err)
		}
	})
}

func TestProcess_Workers(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Batch.Workers = 4
	src, dst := t.TempDir(), t.TempDir()

	files := make(map[string]string)
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		files["page_"+n+".json"] = page1Tree
		files["page_"+n+".csv"] = page1Table
	}
	writeFiles(t, src, files)

	sum, err := process(ctx, src, src, dst, env, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if want := (Summary{Styled: 8, Nodes: 24}); sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}
}

func TestProcess_Ledger(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := t.TempDir(), t.TempDir()
	env.Cfg.Batch.Ledger = filepath.Join(t.TempDir(), "state", "ledger.db")
	writeFiles(t, src, map[string]string{"page_1.json": page1Tree, "page_1.csv": page1Table})

	sum, err := process(ctx, src, src, dst, env, env.Log)
	if err != nil || sum.Styled != 1 {
		t.Fatalf("First run: summary %+v, error %v", sum, err)
	}

	sum, err = process(ctx, src, src, dst, env, env.Log)
	if err != nil || sum != (Summary{UpToDate: 1}) {
		t.Fatalf("Second run: summary %+v, error %v", sum, err)
	}

	env.Force, env.Overwrite = true, true
	sum, err = process(ctx, src, src, dst, env, env.Log)
	if err != nil || sum.Styled != 1 {
		t.Fatalf("Forced run: summary %+v, error %v", sum, err)
	}

	// changed table invalidates record
	env.Force = false
	writeFiles(t, src, map[string]string{"page_1.csv": tableHeader + "Lis vite;Arial;12;#231f20;bold;\n"})
	sum, err = process(ctx, src, src, dst, env, env.Log)
	if err != nil || sum.Styled != 1 {
		t.Fatalf("Changed table run: summary %+v, error %v", sum, err)
	}

	// removed output invalidates record
	if err := os.Remove(filepath.Join(dst, "page_1--style.json")); err != nil {
		t.Fatal(err)
	}
	sum, err = process(ctx, src, src, dst, env, env.Log)
	if err != nil || sum.Styled != 1 {
		t.Fatalf("Removed output run: summary %+v, error %v", sum, err)
	}
}

func TestProcess_TableCodePage(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.CodePage = charmap.Windows1252
	src, dst := t.TempDir(), t.TempDir()

	table, err := charmap.Windows1252.NewEncoder().String(tableHeader +
		"Élève attentif;Arial;12;#231f20;regular;Élève|Arial|12|#231f20|bold\n")
	if err != nil {
		t.Fatal(err)
	}
	writeFiles(t, src, map[string]string{
		"page_1.json": `{"instruction": "Élève attentif"}`,
		"page_1.csv":  table,
	})

	if _, err := process(ctx, src, src, dst, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	want := "{\n  \"instruction\": \"\\\\bf{Élève} attentif\"\n}\n"
	if got := readOutput(t, filepath.Join(dst, "page_1--style.json")); got != want {
		t.Errorf("Output = %q, want %q", got, want)
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{"page_1.json": page1Tree, "page_1.csv": page1Table})

	ctx, cancel := context.WithCancel(ctx)
	cancel()

	sum, err := process(ctx, src, src, dst, env, env.Log)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if sum.Styled != 0 || sum.Failed != 1 {
		t.Errorf("Summary = %+v", sum)
	}
}

type panicSource struct {
	source
}

func (panicSource) read(string) ([]byte, error) {
	panic("boom")
}

func TestProcessPage_Panic(t *testing.T) {
	_, env := setupTestEnv(t)
	b := &batch{env: env, tables: panicSource{}, dst: t.TempDir(), log: env.Log}

	res := b.processPage(context.Background(), job{tree: "page_1.json", table: "page_1.csv"})
	if res.outcome != outcomeFailed {
		t.Fatalf("outcome = %v, want failed", res.outcome)
	}
	if res.err == nil || !strings.Contains(res.err.Error(), "boom") {
		t.Errorf("Expected panic in error, got %v", res.err)
	}
}

func TestProcessPage_Report(t *testing.T) {
	ctx, env := setupTestEnv(t)
	rpt, err := (&config.ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	src, dst := t.TempDir(), t.TempDir()
	writeFiles(t, src, map[string]string{
		"page_1.json": page1Tree,
		"page_1.csv":  page1Table,
		"page_2.json": `{"instruction": `,
		"page_2.csv":  page1Table,
	})

	sum, err := process(ctx, src, src, dst, env, env.Log)
	if err == nil {
		t.Fatal("Expected error for malformed tree")
	}
	if sum.Styled != 1 || sum.Failed != 1 {
		t.Errorf("Summary = %+v", sum)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := zip.OpenReader(rpt.Name())
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer r.Close()

	found := make(map[string]bool)
	for _, f := range r.File {
		found[f.Name] = true
	}
	for _, name := range []string{"pages/page_1.json.txt", "pages/page_1.json.result.json", "pages/page_2.json", "pages/page_2.csv"} {
		if !found[name] {
			t.Errorf("Report is missing %s", name)
		}
	}
}

func TestTableName(t *testing.T) {
	tests := []struct {
		tree, ext, want string
	}{
		{"page_1.json", ".csv", "page_1.csv"},
		{"book/ch1/page_12.json", ".csv", "book/ch1/page_12.csv"},
		{"book/page.v2.json", ".tsv", "book/page.v2.tsv"},
	}
	for _, tt := range tests {
		if got := tableName(tt.tree, tt.ext); got != tt.want {
			t.Errorf("tableName(%q, %q) = %q, want %q", tt.tree, tt.ext, got, tt.want)
		}
	}
}
