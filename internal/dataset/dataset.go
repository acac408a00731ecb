// Package dataset converts cleaned tables into batched datasets for training.
//
// A Dataset yields fixed-size batches of (features, labels). The trailing rows
// that do not fill a whole batch are dropped. With shuffling enabled every call
// to Iter walks a fresh permutation of all rows, derived from the seed and the
// number of previous reads, so repeated runs see the same sequence of epochs.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/born-ml/toxicprep/internal/frame"
	"github.com/born-ml/toxicprep/internal/tokenizer"
)

// Common errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrInvalidLabel     = errors.New("label is not an integer in [-128, 127]")
	ErrNoColumns        = errors.New("dataset needs at least one input and one label column")
)

// Options configures FromTable.
type Options struct {
	Inputs    []string
	Labels    []string
	BatchSize int
	Shuffle   bool
	Seed      uint64
	Tokenizer tokenizer.Tokenizer // optional; adds token IDs to every batch

	Split        string // recorded in the saved file, e.g. "train"
	Uncompressed bool   // save the data section without gzip
}

// Dataset is an in-memory batched dataset.
type Dataset struct {
	index     string
	keys      []string
	inputs    []string
	labels    []string
	features  [][]string  // features[input][row]
	targets   [][]int8    // targets[label][row]
	tokens    [][][]int32 // tokens[input][row], nil without a tokenizer
	encoding  string
	batchSize int
	shuffle   bool
	seed      uint64
	split     string
	compress  bool
	reads     atomic.Uint64
}

// Batch is one group of BatchSize rows.
type Batch struct {
	Keys     []string    // index values, when the source table was indexed
	Features [][]string  // Features[row][input]
	Tokens   [][][]int32 // Tokens[row][input], nil without a tokenizer
	Labels   [][]int8    // Labels[row][label]
	Size     int
}

// FromTable builds a dataset from the input and label columns of t.
func FromTable(t *frame.Table, opts Options) (*Dataset, error) {
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, opts.BatchSize)
	}
	if len(opts.Inputs) == 0 || len(opts.Labels) == 0 {
		return nil, ErrNoColumns
	}

	d := &Dataset{
		index:     t.Index(),
		keys:      t.Keys(),
		inputs:    slices.Clone(opts.Inputs),
		labels:    slices.Clone(opts.Labels),
		batchSize: opts.BatchSize,
		shuffle:   opts.Shuffle,
		seed:      opts.Seed,
		split:     opts.Split,
		compress:  !opts.Uncompressed,
	}

	for _, name := range opts.Inputs {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		d.features = append(d.features, col)
	}

	for _, name := range opts.Labels {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		values, err := parseLabels(name, col)
		if err != nil {
			return nil, err
		}
		d.targets = append(d.targets, values)
	}

	if opts.Tokenizer != nil {
		d.encoding = opts.Tokenizer.Name()
		for i, col := range d.features {
			ids, err := tokenizer.EncodeAll(opts.Tokenizer, col)
			if err != nil {
				return nil, fmt.Errorf("failed to tokenize %q: %w", d.inputs[i], err)
			}
			d.tokens = append(d.tokens, ids)
		}
	}

	return d, nil
}

func parseLabels(name string, col []string) ([]int8, error) {
	out := make([]int8, len(col))
	for i, v := range col {
		n, err := strconv.ParseInt(v, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrInvalidLabel, name, i+1, v)
		}
		out[i] = int8(n)
	}
	return out, nil
}

// Len returns the number of rows, including those that never fill a batch.
func (d *Dataset) Len() int {
	if len(d.features) == 0 {
		return 0
	}
	return len(d.features[0])
}

// NumBatches returns the number of full batches per read.
func (d *Dataset) NumBatches() int {
	return d.Len() / d.batchSize
}

// BatchSize returns the number of rows per batch.
func (d *Dataset) BatchSize() int { return d.batchSize }

// Shuffle reports whether reads are shuffled.
func (d *Dataset) Shuffle() bool { return d.shuffle }

// Seed returns the shuffle seed.
func (d *Dataset) Seed() uint64 { return d.seed }

// Inputs returns the input column names.
func (d *Dataset) Inputs() []string { return slices.Clone(d.inputs) }

// Labels returns the label column names.
func (d *Dataset) Labels() []string { return slices.Clone(d.labels) }

// Encoding returns the tokenizer encoding, or "" without tokens.
func (d *Dataset) Encoding() string { return d.encoding }

// Split returns the split name recorded with the dataset, if any.
func (d *Dataset) Split() string { return d.split }

// Compressed reports whether Save gzips the data section.
func (d *Dataset) Compressed() bool { return d.compress }

// Iterator walks one read of a dataset.
type Iterator struct {
	d     *Dataset
	order []int
	next  int
}

// Iter starts a new read. Each read sees a new permutation when shuffling.
func (d *Dataset) Iter() *Iterator {
	epoch := d.reads.Add(1) - 1

	order := make([]int, d.Len())
	for i := range order {
		order[i] = i
	}
	if d.shuffle {
		rng := rand.New(rand.NewPCG(d.seed, epoch))
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return &Iterator{d: d, order: order}
}

// Next returns the next full batch, or false when the read is exhausted.
func (it *Iterator) Next() (Batch, bool) {
	d := it.d
	if it.next+d.batchSize > len(it.order) {
		return Batch{}, false
	}
	rows := it.order[it.next : it.next+d.batchSize]
	it.next += d.batchSize

	b := Batch{
		Features: make([][]string, len(rows)),
		Labels:   make([][]int8, len(rows)),
		Size:     len(rows),
	}
	if d.keys != nil {
		b.Keys = make([]string, len(rows))
	}
	if d.tokens != nil {
		b.Tokens = make([][][]int32, len(rows))
	}

	for i, r := range rows {
		if b.Keys != nil {
			b.Keys[i] = d.keys[r]
		}
		feat := make([]string, len(d.features))
		for c, col := range d.features {
			feat[c] = col[r]
		}
		b.Features[i] = feat

		lbl := make([]int8, len(d.targets))
		for c, col := range d.targets {
			lbl[c] = col[r]
		}
		b.Labels[i] = lbl

		if b.Tokens != nil {
			toks := make([][]int32, len(d.tokens))
			for c, col := range d.tokens {
				toks[c] = col[r]
			}
			b.Tokens[i] = toks
		}
	}
	return b, true
}

// Batches collects one full read.
func (d *Dataset) Batches() []Batch {
	it := d.Iter()
	out := make([]Batch, 0, d.NumBatches())
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		out = append(out, b)
	}
	return out
}
