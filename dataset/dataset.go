// Package dataset reads the batched datasets written by the convert stage.
//
// Example usage:
//
//	import "github.com/born-ml/toxicprep/dataset"
//
//	set, err := dataset.LoadAll("data/interim")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	it := set.Train.Iter() // a new shuffle order on every call
//	for b, ok := it.Next(); ok; b, ok = it.Next() {
//	    train(b.Features, b.Labels)
//	}
package dataset

import (
	"github.com/born-ml/toxicprep/internal/dataset"
)

// Dataset is a batched, optionally shuffled dataset.
type Dataset = dataset.Dataset

// Batch is one fixed-size group of rows.
type Batch = dataset.Batch

// Iterator walks the batches of one read.
type Iterator = dataset.Iterator

// Set groups the train, validation and test datasets.
type Set = dataset.Set

// Load reads a single dataset directory.
func Load(dir string) (*Dataset, error) {
	return dataset.Load(dir)
}

// LoadAll reads the train, validation and test datasets under interimDir.
func LoadAll(interimDir string) (Set, error) {
	return dataset.LoadAll(interimDir)
}
