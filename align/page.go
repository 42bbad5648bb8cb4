package align

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"pagestyle/state"
	"pagestyle/style"
	"pagestyle/tree"
	dbg "pagestyle/utils/debug"
)

// ErrMissingTable is returned when page has no matching style table.
var ErrMissingTable = errors.New("style table not found")

type outcome int

const (
	outcomeNotStarted outcome = iota
	outcomeStyled
	outcomeSkipped
	outcomeUpToDate
	outcomeFailed
)

// job is a single page: content tree and the style table it is paired with.
type job struct {
	tree  string
	table string
}

// tableName pairs tree with a style table: same directory, same page name.
func tableName(tree, ext string) string {
	return path.Join(path.Dir(tree), pageName(tree)+ext)
}

type result struct {
	outcome outcome
	nodes   int
	output  string
	err     error
}

// batch holds everything necessary to process pages of a single run.
type batch struct {
	env    *state.LocalEnv
	trees  source
	tables source
	dst    string
	ledger *Ledger
	log    *zap.Logger
}

// processPage styles single page. Page failures, panics included, are
// returned as errors and never stop the batch.
func (b *batch) processPage(ctx context.Context, j job) (res result) {
	log := b.log.With(zap.String("page", j.tree))

	log.Debug("Page processing starting")
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Page processing ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			res = result{outcome: outcomeFailed, err: fmt.Errorf("page %s: processing panic: %v", j.tree, r)}
			return
		}
		switch res.outcome {
		case outcomeFailed:
			log.Error("Unable to process page", zap.Duration("elapsed", time.Since(start)), zap.Error(res.err))
		case outcomeSkipped:
			log.Info("Page skipped", zap.Error(res.err))
		case outcomeUpToDate:
			log.Info("Page is up to date", zap.String("to", res.output))
		default:
			log.Info("Page styled", zap.Duration("elapsed", time.Since(start)), zap.Int("nodes", res.nodes), zap.String("to", res.output))
		}
	}(time.Now())

	if err := ctx.Err(); err != nil {
		return result{outcome: outcomeFailed, err: err}
	}

	tableData, err := b.tables.read(j.table)
	if errors.Is(err, fs.ErrNotExist) {
		return result{outcome: outcomeSkipped, err: fmt.Errorf("%w: %s", ErrMissingTable, j.table)}
	}
	if err != nil {
		return failed(j, fmt.Errorf("unable to read style table: %w", err))
	}
	treeData, err := b.trees.read(j.tree)
	if err != nil {
		return failed(j, fmt.Errorf("unable to read content tree: %w", err))
	}

	outputName := buildOutputPath(j.tree, b.dst, b.env)
	fingerprint := b.fingerprint(treeData, tableData)
	if !b.env.Force {
		upToDate, err := b.ledger.UpToDate(j.tree, fingerprint, outputName)
		if err != nil {
			log.Warn("Unable to check ledger", zap.Error(err))
		}
		if upToDate {
			return result{outcome: outcomeUpToDate, output: outputName}
		}
	}

	if err := prepareOutput(outputName, b.env.Overwrite, log); err != nil {
		return failed(j, err)
	}

	rows, err := decodeTable(tableData, b.env.CodePage)
	if err != nil {
		b.keepInputs(j, treeData, tableData)
		return failed(j, err)
	}
	root, err := tree.Decode(bytes.NewReader(treeData))
	if err != nil {
		b.keepInputs(j, treeData, tableData)
		return failed(j, err)
	}

	nodes, dump := stylePage(j, root, style.NewPage(rows, b.env.Opts), b.env)

	data, err := tree.Marshal(root)
	if err != nil {
		return failed(j, fmt.Errorf("unable to encode content tree: %w", err))
	}
	if err := os.WriteFile(outputName, data, 0644); err != nil {
		return failed(j, fmt.Errorf("unable to write output: %w", err))
	}

	if err := b.ledger.Record(j.tree, fingerprint, outputName, nodes); err != nil {
		log.Warn("Unable to update ledger", zap.Error(err))
	}
	if b.env.Rpt != nil {
		b.env.Rpt.StoreData(path.Join("pages", j.tree+".txt"), []byte(dump))
		if err := b.env.Rpt.StoreCopy(path.Join("pages", j.tree+".result.json"), outputName); err != nil {
			log.Warn("Unable to store result in debug report", zap.Error(err))
		}
	}
	return result{outcome: outcomeStyled, nodes: nodes, output: outputName}
}

func failed(j job, err error) result {
	return result{outcome: outcomeFailed, err: fmt.Errorf("page %s: %w", j.tree, err)}
}

// stylePage replaces every collected node with its styled version and
// returns number of styled nodes together with alignment dump.
func stylePage(j job, root *tree.Node, page *style.Page, env *state.LocalEnv) (int, string) {
	var tw *dbg.TreeWriter
	if env.Rpt != nil {
		tw = dbg.NewTreeWriter()
		tw.Line(0, "page %s (table %s)", j.tree, j.table)
		tw.Line(1, "characters %d", page.Len())
	}

	count := 0
	for _, ref := range tree.Collect(root, env.Keys) {
		text := ref.Text()
		res := page.Style(text)
		if tw != nil {
			dumpNode(tw, ref.Path, text, res)
		}
		if res.Skipped {
			continue
		}
		ref.Replace(res.Text)
		count++
	}

	if tw == nil {
		return count, ""
	}
	return count, tw.String()
}

func dumpNode(tw *dbg.TreeWriter, path, text string, res style.Result) {
	tw.Line(1, "node %s", path)
	tw.TextBlock(2, "text", text)
	if res.Skipped {
		tw.Line(2, "skipped")
		return
	}
	tw.TextBlock(2, "compact", res.Compact)
	tw.Line(2, "match page=%d node=%d size=%d", res.Match.A, res.Match.B, res.Match.Size)
	runs := make([]dbg.Run, 0, len(res.Segments))
	for _, s := range res.Segments {
		runs = append(runs, dbg.Run{Tag: attrsTag(s.Attrs), Text: s.Text})
	}
	tw.Runs(2, "segments", runs)
	tw.TextBlock(2, "result", res.Text)
}

func attrsTag(a style.Attrs) string {
	var tags []string
	if a.Bold {
		tags = append(tags, "b")
	}
	if a.Italic {
		tags = append(tags, "i")
	}
	if a.Color != "" {
		tags = append(tags, a.Color)
	}
	return strings.Join(tags, ",")
}

// prepareOutput makes sure output could be written.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

// decodeTable parses style table converting it from forced code page if any.
func decodeTable(data []byte, cp encoding.Encoding) ([]style.Row, error) {
	var r io.Reader = bytes.NewReader(data)
	if cp != nil {
		r = transform.NewReader(r, cp.NewDecoder())
	}
	return style.ReadTable(r)
}

// fingerprint covers everything output depends on.
func (b *batch) fingerprint(treeData, tableData []byte) string {
	var cp string
	if b.env.CodePage != nil {
		cp, _ = ianaindex.IANA.Name(b.env.CodePage)
	}
	keys := strings.Join(b.env.Keys.Fields, ",") + "\x00" + strings.Join(b.env.Keys.Lists, ",")
	return Fingerprint(treeData, tableData, []byte(b.env.Opts.Fingerprint()), []byte(keys), []byte(cp))
}

// keepInputs puts inputs of failed page into debug report.
func (b *batch) keepInputs(j job, treeData, tableData []byte) {
	if b.env.Rpt == nil {
		return
	}
	b.env.Rpt.StoreData(path.Join("pages", j.tree), treeData)
	b.env.Rpt.StoreData(path.Join("pages", j.table), tableData)
}
