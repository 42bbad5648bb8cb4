// Package align drives styling of page batches: pairs content trees with
// style tables, styles every page and writes results.
package align

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/ianaindex"

	"pagestyle/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("align")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	tables := cmd.String("tables")
	if len(tables) == 0 {
		tables = src
	} else if tables, err = filepath.Abs(tables); err != nil {
		return err
	}

	env.NoDirs, env.Overwrite, env.Force = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("force")
	if cmd.IsSet("workers") {
		env.Cfg.Batch.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("ledger") {
		env.Cfg.Batch.Ledger = cmd.String("ledger")
	}

	// Style tables produced by older tooling may be in archaic code page
	cp := cmd.String("table-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting style tables", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("tables", tables), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	_, err = process(ctx, src, tables, dst, env, log)
	return err
}

// Summary counts pages by outcome.
type Summary struct {
	Styled, Skipped, UpToDate, Failed int
	Nodes                             int
}

// process handles batch independently of CLI framework. Every page is
// attempted, page failures are combined into returned error.
func process(ctx context.Context, src, tables, dst string, env *state.LocalEnv, log *zap.Logger) (sum Summary, err error) {
	trees, err := openSource(src)
	if err != nil {
		return sum, err
	}
	defer func() {
		err = multierr.Append(err, trees.Close())
	}()

	tableSrc := trees
	if tables != src {
		if tableSrc, err = openSource(tables); err != nil {
			return sum, err
		}
		defer func() {
			err = multierr.Append(err, tableSrc.Close())
		}()
	}

	var ledger *Ledger
	if name := env.Cfg.Batch.Ledger; len(name) > 0 {
		if ledger, err = OpenLedger(filepath.Clean(name)); err != nil {
			return sum, err
		}
		defer func() {
			err = multierr.Append(err, ledger.Close())
		}()
		log.Debug("Using processing ledger", zap.String("ledger", name), zap.String("run_id", ledger.RunID()))
	}

	b := &batch{env: env, trees: trees, tables: tableSrc, dst: dst, ledger: ledger, log: log}
	sum, err = b.run(ctx)

	log.Info("Batch summary",
		zap.Int("styled", sum.Styled), zap.Int("skipped", sum.Skipped), zap.Int("up_to_date", sum.UpToDate),
		zap.Int("failed", sum.Failed), zap.Int("nodes", sum.Nodes), zap.String("run_id", ledger.RunID()))
	return sum, err
}

// run processes all pages of the batch in natural order using configured
// number of workers.
func (b *batch) run(ctx context.Context) (Summary, error) {
	var sum Summary

	names, err := b.trees.list(b.env.Cfg.Batch.TreePattern)
	if err != nil {
		return sum, fmt.Errorf("unable to list pages in %s: %w", b.trees, err)
	}
	names = b.withoutOutputs(names)
	if len(names) == 0 {
		b.log.Debug("Nothing to process", zap.Stringer("source", b.trees))
		return sum, nil
	}

	workers := b.env.Cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		j := job{tree: name, table: tableName(name, b.env.Cfg.Batch.TableExt)}
		g.Go(func() error {
			results[i] = b.processPage(gctx, j)
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for i, r := range results {
		switch r.outcome {
		case outcomeStyled:
			sum.Styled++
			sum.Nodes += r.nodes
		case outcomeSkipped:
			sum.Skipped++
		case outcomeUpToDate:
			sum.UpToDate++
		case outcomeNotStarted, outcomeFailed:
			if r.err == nil {
				// batch was interrupted
				r.err = fmt.Errorf("page %s: not processed", names[i])
			}
			sum.Failed++
			errs = multierr.Append(errs, r.err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return sum, errs
}

// withoutOutputs drops trees which are outputs of other pages of the same
// batch. This happens when destination is inside the source directory.
func (b *batch) withoutOutputs(names []string) []string {
	ds, ok := b.trees.(*dirSource)
	if !ok {
		return names
	}
	outputs := make(map[string]struct{}, len(names))
	for _, name := range names {
		outputs[buildOutputPath(name, b.dst, b.env)] = struct{}{}
	}
	return slices.DeleteFunc(names, func(name string) bool {
		if _, ok := outputs[ds.path(name)]; ok {
			b.log.Debug("Ignoring output of previous run", zap.String("page", name))
			return true
		}
		return false
	})
}
