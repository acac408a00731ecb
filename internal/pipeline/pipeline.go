// Package pipeline runs the dataset stages in order.
//
// Each stage can run on its own. A stage whose input artifacts are missing
// runs the earlier stages first, so "convert" on an empty data directory
// downloads and preprocesses before converting. Every stage logs its start
// and outcome, updates the metrics and writes one ledger entry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/toxicprep/internal/acquire"
	"github.com/born-ml/toxicprep/internal/config"
	"github.com/born-ml/toxicprep/internal/dataset"
	"github.com/born-ml/toxicprep/internal/explore"
	"github.com/born-ml/toxicprep/internal/frame"
	"github.com/born-ml/toxicprep/internal/ledger"
	"github.com/born-ml/toxicprep/internal/metrics"
	"github.com/born-ml/toxicprep/internal/preprocess"
	"github.com/born-ml/toxicprep/internal/tokenizer"
)

// Stage names, as used in logs, metrics and the ledger.
const (
	StageDownload   = "download"
	StagePreprocess = "preprocess"
	StageConvert    = "convert"
	StageExplore    = "explore"
)

// Runner executes pipeline stages against one configuration.
type Runner struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Ledger  ledger.Recorder
	RunID   uuid.UUID

	// Source overrides the source built from Config.
	Source acquire.Source
	// Tokenizer overrides the tiktoken encoding named in Config.
	Tokenizer tokenizer.Tokenizer
	// Out receives the exploration text report. Defaults to os.Stdout.
	Out io.Writer
}

// New returns a runner with fresh metrics, no ledger and a new run id.
func New(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Ledger:  ledger.Nop{},
		RunID:   uuid.New(),
		Out:     os.Stdout,
	}
}

// stage runs fn as the named stage. fn reports row counts per table.
func (r *Runner) stage(ctx context.Context, name string, fn func() (map[string]int, error)) error {
	log := r.Logger.With("stage", name, "run_id", r.RunID.String())
	log.Info("stage started")

	start := time.Now()
	rows, err := fn()
	elapsed := time.Since(start)

	r.Metrics.ObserveStage(name, elapsed, err)
	for table, n := range rows {
		r.Metrics.Rows(name, table, n)
	}

	entry := ledger.Entry{
		RunID:     r.RunID,
		Stage:     name,
		Status:    ledger.StatusOK,
		Rows:      rows,
		StartedAt: start,
		Duration:  elapsed,
	}
	if err != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = err.Error()
		log.Error("stage failed", "duration", elapsed, "error", err)
	} else {
		attrs := []any{"duration", elapsed}
		for table, n := range rows {
			attrs = append(attrs, table, n)
		}
		log.Info("stage finished", attrs...)
	}

	if lerr := r.Ledger.Record(ctx, entry); lerr != nil {
		if err != nil {
			log.Warn("ledger entry lost", "error", lerr)
			return err
		}
		return lerr
	}
	return err
}

func (r *Runner) source(ctx context.Context) (acquire.Source, error) {
	if r.Source != nil {
		return r.Source, nil
	}
	return acquire.NewSource(ctx, r.Config)
}

// Download fetches any missing raw file and returns the raw tables.
//
// With every file cached no source is built, so credentials are not needed.
func (r *Runner) Download(ctx context.Context) (acquire.RawTables, error) {
	var raw acquire.RawTables
	err := r.stage(ctx, StageDownload, func() (map[string]int, error) {
		cache := &acquire.Cache{Dir: r.Config.Paths.Raw}
		if !cache.Exists() {
			src, err := r.source(ctx)
			if err != nil {
				return nil, err
			}
			cache.Source = src
			r.Logger.Info("downloading raw data", "source", src.Name(), "dir", cache.Dir)
		}

		fetched, err := cache.Download(ctx)
		if err != nil {
			return nil, err
		}
		if fetched == 0 {
			r.Logger.Debug("raw data cached", "dir", cache.Dir)
		}

		if raw, err = cache.Load(); err != nil {
			return nil, err
		}
		return map[string]int{
			"train":       raw.Train.Len(),
			"test":        raw.Test.Len(),
			"test_labels": raw.TestLabels.Len(),
		}, nil
	})
	return raw, err
}

// Preprocess downloads the raw tables, cleans and splits them and saves the
// result under the processed directory.
func (r *Runner) Preprocess(ctx context.Context) (preprocess.Tables, error) {
	raw, err := r.Download(ctx)
	if err != nil {
		return preprocess.Tables{}, err
	}
	return r.preprocess(ctx, raw)
}

func (r *Runner) preprocess(ctx context.Context, raw acquire.RawTables) (preprocess.Tables, error) {
	var tables preprocess.Tables
	err := r.stage(ctx, StagePreprocess, func() (map[string]int, error) {
		var stats preprocess.Stats
		var err error
		tables, stats, err = preprocess.Preprocess(raw, preprocess.OptionsFromConfig(r.Config))
		if err != nil {
			return nil, err
		}
		r.Metrics.Dropped(metrics.ReasonUnmatched, stats.Unmatched)
		r.Metrics.Dropped(metrics.ReasonUnscored, stats.Unscored)

		if err := preprocess.Save(r.Config.Paths.Processed, tables); err != nil {
			return nil, err
		}
		return map[string]int{"train": stats.Train, "val": stats.Val, "test": stats.Test}, nil
	})
	return tables, err
}

// cleaned loads the processed tables, running Preprocess when they are missing.
func (r *Runner) cleaned(ctx context.Context) (preprocess.Tables, error) {
	if !preprocess.Exists(r.Config.Paths.Processed) {
		return r.Preprocess(ctx)
	}
	tables, err := preprocess.Load(r.Config.Paths.Processed, r.Config.Columns.ID)
	if err != nil {
		return preprocess.Tables{}, err
	}
	if err := preprocess.Validate(tables, preprocess.OptionsFromConfig(r.Config)).Err(); err != nil {
		return preprocess.Tables{}, fmt.Errorf("processed data in %s: %w", r.Config.Paths.Processed, err)
	}
	return tables, nil
}

// Convert builds batched datasets from the processed tables and saves them
// under the interim directory.
func (r *Runner) Convert(ctx context.Context) (dataset.Set, error) {
	tables, err := r.cleaned(ctx)
	if err != nil {
		return dataset.Set{}, err
	}
	return r.convert(ctx, tables)
}

func (r *Runner) tokenizer() (tokenizer.Tokenizer, error) {
	if r.Tokenizer != nil {
		return r.Tokenizer, nil
	}
	if r.Config.Batch.Encoding == "" {
		return nil, nil
	}
	return tokenizer.NewTikToken(r.Config.Batch.Encoding)
}

func (r *Runner) convert(ctx context.Context, tables preprocess.Tables) (dataset.Set, error) {
	var set dataset.Set
	err := r.stage(ctx, StageConvert, func() (map[string]int, error) {
		tok, err := r.tokenizer()
		if err != nil {
			return nil, err
		}
		opts := dataset.Options{
			Inputs:    r.Config.Columns.Inputs,
			Labels:    r.Config.Columns.Labels,
			BatchSize: r.Config.Batch.Size,
			Shuffle:   r.Config.Batch.Shuffle,
			Seed:      r.Config.Batch.Seed,
			Tokenizer: tok,

			Uncompressed: !r.Config.Batch.Compress,
		}

		rows := make(map[string]int, 3)
		for _, p := range []struct {
			name  string
			table *frame.Table
			dst   **dataset.Dataset
		}{
			{"train", tables.Train, &set.Train},
			{"val", tables.Val, &set.Val},
			{"test", tables.Test, &set.Test},
		} {
			opts.Split = p.name
			ds, err := dataset.FromTable(p.table, opts)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.name, err)
			}
			*p.dst = ds
			batched := ds.NumBatches() * ds.BatchSize()
			rows[p.name] = batched
			r.Metrics.Dropped(metrics.ReasonRemainder, ds.Len()-batched)
		}

		if b, ok := set.Train.Iter().Next(); ok && len(b.Features) > 0 {
			r.Logger.Debug("first training example", "features", b.Features[0], "labels", b.Labels[0])
		}

		if err := dataset.SaveAll(r.Config.Paths.Interim, set); err != nil {
			return nil, err
		}
		return rows, nil
	})
	return set, err
}

// Explore summarises the processed tables, prints the text report and writes
// the workbook when a report path is configured.
func (r *Runner) Explore(ctx context.Context) (*explore.Report, error) {
	tables, err := r.cleaned(ctx)
	if err != nil {
		return nil, err
	}
	return r.explore(ctx, tables)
}

func (r *Runner) explore(ctx context.Context, tables preprocess.Tables) (*explore.Report, error) {
	var report *explore.Report
	err := r.stage(ctx, StageExplore, func() (map[string]int, error) {
		var err error
		report, err = explore.Build([]explore.Named{
			{Name: "Train", Table: tables.Train},
			{Name: "Validation", Table: tables.Val},
			{Name: "Test", Table: tables.Test},
		}, r.Config.Columns.Labels)
		if err != nil {
			return nil, err
		}

		if r.Out != nil {
			if err := report.WriteText(r.Out); err != nil {
				return nil, fmt.Errorf("failed to print report: %w", err)
			}
		}
		if path := r.Config.Paths.Report; path != "" {
			if err := report.WriteWorkbook(path); err != nil {
				return nil, err
			}
			r.Logger.Info("report written", "path", path)
		}
		return map[string]int{"train": tables.Train.Len(), "val": tables.Val.Len(), "test": tables.Test.Len()}, nil
	})
	return report, err
}

// All runs every stage in order, reusing each stage's output in the next.
func (r *Runner) All(ctx context.Context) error {
	raw, err := r.Download(ctx)
	if err != nil {
		return err
	}
	tables, err := r.preprocess(ctx, raw)
	if err != nil {
		return err
	}
	if _, err := r.convert(ctx, tables); err != nil {
		return err
	}
	_, err = r.explore(ctx, tables)
	return err
}

// Push sends the run metrics to the configured Pushgateway. It does nothing
// when no gateway is configured.
func (r *Runner) Push(ctx context.Context) error {
	url := r.Config.Metrics.PushgatewayURL
	if url == "" {
		return nil
	}
	if err := r.Metrics.Push(ctx, url, r.Config.Metrics.Job); err != nil {
		return err
	}
	r.Logger.Debug("metrics pushed", "url", url)
	return nil
}

// Stages lists the stage commands accepted by Run.
var Stages = []string{StageDownload, StagePreprocess, StageConvert, StageExplore, "all"}

// ErrUnknownStage is returned by Run for a name not in Stages.
var ErrUnknownStage = errors.New("unknown stage")

// Run executes the named stage, or every stage for "all".
func (r *Runner) Run(ctx context.Context, name string) error {
	var err error
	switch name {
	case StageDownload:
		_, err = r.Download(ctx)
	case StagePreprocess:
		_, err = r.Preprocess(ctx)
	case StageConvert:
		_, err = r.Convert(ctx)
	case StageExplore:
		_, err = r.Explore(ctx)
	case "all":
		err = r.All(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return err
}
