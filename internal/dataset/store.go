package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/toxicprep/internal/serialization"
)

// File name of the serialized dataset inside its directory.
const DataFile = "data.tds"

// Directory names of the three converted datasets.
const (
	TrainDir = "train_ds"
	ValDir   = "val_ds"
	TestDir  = "test_ds"
)

const tokenSuffix = ".tokens"

// Set groups the three converted datasets.
type Set struct {
	Train *Dataset
	Val   *Dataset
	Test  *Dataset
}

// Metadata keys written to every saved dataset.
const (
	MetaSplit  = "split"
	MetaLabels = "labels"
)

// Save writes d to dir/data.tds.
func (d *Dataset) Save(dir string) error {
	return d.save(dir, d.split)
}

func (d *Dataset) save(dir, split string) error {
	meta := map[string]string{MetaLabels: strings.Join(d.labels, ",")}
	if split != "" {
		meta[MetaSplit] = split
	}
	w := serialization.NewWriter(serialization.Header{
		Rows:      d.Len(),
		BatchSize: d.batchSize,
		Shuffle:   d.shuffle,
		Seed:      d.seed,
		Encoding:  d.encoding,
		Metadata:  meta,
	})
	w.SetCompression(d.compress)

	if d.index != "" {
		if err := w.AddStrings(d.index, serialization.KindIndex, d.keys); err != nil {
			return err
		}
	}
	for i, name := range d.inputs {
		if err := w.AddStrings(name, serialization.KindFeature, d.features[i]); err != nil {
			return err
		}
	}
	for i, name := range d.labels {
		if err := w.AddInt8(name, serialization.KindLabel, d.targets[i]); err != nil {
			return err
		}
	}
	for i, name := range d.inputs {
		if d.tokens == nil {
			break
		}
		if err := w.AddRagged(name+tokenSuffix, serialization.KindTokens, d.tokens[i]); err != nil {
			return err
		}
	}

	if err := w.WriteFile(filepath.Join(dir, DataFile)); err != nil {
		return fmt.Errorf("failed to save dataset to %s: %w", dir, err)
	}
	return nil
}

// Load reads a dataset saved by Save.
func Load(dir string) (*Dataset, error) {
	f, err := serialization.ReadFile(filepath.Join(dir, DataFile), serialization.ReaderOptions{
		ValidationLevel: serialization.ValidationStrict,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset from %s: %w", dir, err)
	}

	h := f.Header()
	if h.BatchSize < 1 {
		return nil, fmt.Errorf("%w: stored batch size %d", ErrInvalidBatchSize, h.BatchSize)
	}
	d := &Dataset{
		batchSize: h.BatchSize,
		shuffle:   h.Shuffle,
		seed:      h.Seed,
		encoding:  h.Encoding,
		split:     h.Metadata[MetaSplit],
		compress:  f.Flags()&serialization.FlagCompressed != 0,
	}

	if idx := h.SegmentsOfKind(serialization.KindIndex); len(idx) > 0 {
		d.index = idx[0].Name
		if d.keys, err = f.Strings(d.index); err != nil {
			return nil, err
		}
	}
	for _, s := range h.SegmentsOfKind(serialization.KindFeature) {
		col, err := f.Strings(s.Name)
		if err != nil {
			return nil, err
		}
		d.inputs = append(d.inputs, s.Name)
		d.features = append(d.features, col)
	}
	for _, s := range h.SegmentsOfKind(serialization.KindLabel) {
		col, err := f.Int8(s.Name)
		if err != nil {
			return nil, err
		}
		d.labels = append(d.labels, s.Name)
		d.targets = append(d.targets, col)
	}
	if len(d.inputs) == 0 || len(d.labels) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoColumns)
	}

	if len(h.SegmentsOfKind(serialization.KindTokens)) > 0 {
		for _, name := range d.inputs {
			ids, err := f.Ragged(name + tokenSuffix)
			if err != nil {
				return nil, err
			}
			d.tokens = append(d.tokens, ids)
		}
	}

	return d, nil
}

// SaveAll writes the three datasets under interimDir, recording each one's
// split name.
func SaveAll(interimDir string, s Set) error {
	for _, p := range []struct {
		dir, split string
		ds         *Dataset
	}{
		{TrainDir, "train", s.Train},
		{ValDir, "val", s.Val},
		{TestDir, "test", s.Test},
	} {
		if err := p.ds.save(filepath.Join(interimDir, p.dir), p.split); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll reads the three datasets saved by SaveAll.
func LoadAll(interimDir string) (Set, error) {
	var s Set
	var err error
	if s.Train, err = Load(filepath.Join(interimDir, TrainDir)); err != nil {
		return Set{}, err
	}
	if s.Val, err = Load(filepath.Join(interimDir, ValDir)); err != nil {
		return Set{}, err
	}
	if s.Test, err = Load(filepath.Join(interimDir, TestDir)); err != nil {
		return Set{}, err
	}
	return s, nil
}

// Exists reports whether all three datasets are present under interimDir.
func Exists(interimDir string) bool {
	for _, dir := range []string{TrainDir, ValDir, TestDir} {
		if _, err := os.Stat(filepath.Join(interimDir, dir, DataFile)); err != nil {
			return false
		}
	}
	return true
}
