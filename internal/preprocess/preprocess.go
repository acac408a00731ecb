// Package preprocess turns the raw tables into cleaned, split tables.
//
// The stage re-keys every table by its identifier column, inner-joins the test
// table with its labels, drops test rows that were never scored and splits the
// train table into train and validation subsets. Each step returns a new table.
package preprocess

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/born-ml/toxicprep/internal/acquire"
	"github.com/born-ml/toxicprep/internal/config"
	"github.com/born-ml/toxicprep/internal/frame"
	"github.com/born-ml/toxicprep/internal/schema"
)

// Unscored is the label value marking a test row that was excluded from scoring.
const Unscored = -1

// Common errors.
var (
	ErrInvalidFraction = errors.New("validation fraction must be in [0, 1)")
	ErrEmptySplit      = errors.New("split leaves the train subset empty")
)

// Options selects columns and split parameters.
type Options struct {
	ID          string
	Inputs      []string
	Labels      []string
	ValFraction float64
	Seed        uint64
	Normalize   bool // NFC-normalise input text
}

// OptionsFromConfig maps the pipeline configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ID:          cfg.Columns.ID,
		Inputs:      slices.Clone(cfg.Columns.Inputs),
		Labels:      slices.Clone(cfg.Columns.Labels),
		ValFraction: cfg.Split.ValFraction,
		Seed:        cfg.Split.Seed,
		Normalize:   true,
	}
}

// Tables are the three cleaned tables, all indexed by the identifier.
type Tables struct {
	Train *frame.Table
	Val   *frame.Table
	Test  *frame.Table
}

// Stats counts rows through each step.
type Stats struct {
	RawTrain      int
	RawTest       int
	RawTestLabels int
	Unmatched     int // test rows without a label row
	Unscored      int // joined test rows whose labels are all -1
	Train         int
	Val           int
	Test          int
}

// IndexByID moves the identifier column into the index.
func IndexByID(t *frame.Table, id string) (*frame.Table, error) {
	return t.SetIndex(id)
}

// JoinLabels inner-joins labels onto test by identifier.
//
// Duplicate identifiers on either side are an error, so the result never has
// more rows than either input. Test rows without labels are dropped.
func JoinLabels(test, labels *frame.Table) (*frame.Table, error) {
	joined, err := test.Join(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to join test labels: %w", err)
	}
	return joined, nil
}

// DropUnscored removes rows where every label column holds -1.
func DropUnscored(t *frame.Table, labels []string) (*frame.Table, error) {
	cols := make([][]string, len(labels))
	for i, l := range labels {
		col, err := t.Column(l)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	return t.Filter(func(row int) bool {
		for _, col := range cols {
			if !isUnscored(col[row]) {
				return true
			}
		}
		return len(cols) == 0
	}), nil
}

func isUnscored(v string) bool {
	if v == "-1" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == Unscored
}

// ValidationSize is the number of rows a split of n rows puts into validation.
func ValidationSize(n int, valFraction float64) int {
	return int(math.Ceil(valFraction*float64(n) - 1e-9))
}

// SplitTrainValidation samples valFraction of the rows as validation and
// keeps the rest as train. The same seed always selects the same rows. Both
// subsets keep the original row order.
func SplitTrainValidation(t *frame.Table, valFraction float64, seed uint64) (train, val *frame.Table, err error) {
	if valFraction < 0 || valFraction >= 1 || math.IsNaN(valFraction) {
		return nil, nil, fmt.Errorf("%w: got %g", ErrInvalidFraction, valFraction)
	}

	n := t.Len()
	nVal := ValidationSize(n, valFraction)
	if n > 0 && nVal >= n {
		return nil, nil, fmt.Errorf("%w: %d rows at fraction %g", ErrEmptySplit, n, valFraction)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	inVal := make([]bool, n)
	for _, idx := range rng.Perm(n)[:nVal] {
		inVal[idx] = true
	}

	trainRows := make([]int, 0, n-nVal)
	valRows := make([]int, 0, nVal)
	for i := range n {
		if inVal[i] {
			valRows = append(valRows, i)
		} else {
			trainRows = append(trainRows, i)
		}
	}
	return t.Take(trainRows), t.Take(valRows), nil
}

// NormalizeText rewrites the input columns in Unicode NFC form.
func NormalizeText(t *frame.Table, inputs []string) (*frame.Table, error) {
	out := t
	for _, name := range inputs {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			col[i] = norm.NFC.String(v)
		}
		if out, err = out.WithColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Preprocess cleans and splits the raw tables, then validates the result.
func Preprocess(raw acquire.RawTables, opts Options) (Tables, Stats, error) {
	stats := Stats{
		RawTrain:      raw.Train.Len(),
		RawTest:       raw.Test.Len(),
		RawTestLabels: raw.TestLabels.Len(),
	}

	if err := checkRaw(raw, opts).Err(); err != nil {
		return Tables{}, stats, err
	}

	body := append(slices.Clone(opts.Inputs), opts.Labels...)

	train, err := prepare(raw.Train, opts.ID, body)
	if err != nil {
		return Tables{}, stats, fmt.Errorf("train: %w", err)
	}
	test, err := prepare(raw.Test, opts.ID, opts.Inputs)
	if err != nil {
		return Tables{}, stats, fmt.Errorf("test: %w", err)
	}
	labels, err := prepare(raw.TestLabels, opts.ID, opts.Labels)
	if err != nil {
		return Tables{}, stats, fmt.Errorf("test labels: %w", err)
	}

	joined, err := JoinLabels(test, labels)
	if err != nil {
		return Tables{}, stats, err
	}
	stats.Unmatched = test.Len() - joined.Len()

	scored, err := DropUnscored(joined, opts.Labels)
	if err != nil {
		return Tables{}, stats, err
	}
	stats.Unscored = joined.Len() - scored.Len()

	if opts.Normalize {
		if train, err = NormalizeText(train, opts.Inputs); err != nil {
			return Tables{}, stats, err
		}
		if scored, err = NormalizeText(scored, opts.Inputs); err != nil {
			return Tables{}, stats, err
		}
	}

	trainSplit, valSplit, err := SplitTrainValidation(train, opts.ValFraction, opts.Seed)
	if err != nil {
		return Tables{}, stats, err
	}

	tables := Tables{Train: trainSplit, Val: valSplit, Test: scored}
	stats.Train, stats.Val, stats.Test = trainSplit.Len(), valSplit.Len(), scored.Len()

	if err := Validate(tables, opts).Err(); err != nil {
		return Tables{}, stats, err
	}
	return tables, stats, nil
}

func prepare(t *frame.Table, id string, columns []string) (*frame.Table, error) {
	indexed, err := IndexByID(t, id)
	if err != nil {
		return nil, err
	}
	return indexed.Select(columns...)
}

// checkRaw reports missing columns in the raw tables. Extra columns are
// tolerated since only the configured ones are kept.
func checkRaw(raw acquire.RawTables, opts Options) schema.Result {
	train := schema.RawTrain(opts.ID, opts.Inputs, opts.Labels)
	test := schema.RawTest(opts.ID, opts.Inputs)
	labels := schema.RawTestLabels(opts.ID, opts.Labels)
	train.Exact, test.Exact, labels.Exact = false, false, false

	return schema.Merge(
		schema.Check(raw.Train, train),
		schema.Check(raw.Test, test),
		schema.Check(raw.TestLabels, labels),
	)
}

// Validate checks that the cleaned tables are indexed by the identifier, hold
// only the input and label columns and carry binary labels. Empty tables are
// violations, except validation when no split was requested.
func Validate(t Tables, opts Options) schema.Result {
	val := schema.Processed("validation", opts.ID, opts.Inputs, opts.Labels)
	val.NonEmpty = opts.ValFraction > 0

	return schema.Merge(
		schema.Check(t.Train, schema.Processed("train", opts.ID, opts.Inputs, opts.Labels)),
		schema.Check(t.Val, val),
		schema.Check(t.Test, schema.Processed("test", opts.ID, opts.Inputs, opts.Labels)),
	)
}
