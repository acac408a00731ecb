package preprocess

import (
	"os"
	"path/filepath"

	"github.com/born-ml/toxicprep/internal/frame"
)

// Cleaned table file names inside the processed directory.
const (
	TrainFile = "train.csv.gz"
	ValFile   = "val.csv.gz"
	TestFile  = "test.csv.gz"
)

// Save writes the cleaned tables as gzip-compressed CSV.
func Save(dir string, t Tables) error {
	for _, f := range []struct {
		name  string
		table *frame.Table
	}{
		{TrainFile, t.Train},
		{ValFile, t.Val},
		{TestFile, t.Test},
	} {
		if err := frame.WriteFile(filepath.Join(dir, f.name), f.table); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the cleaned tables saved by Save, indexed by id.
func Load(dir, id string) (Tables, error) {
	var t Tables
	var err error
	if t.Train, err = frame.ReadFile(filepath.Join(dir, TrainFile), id); err != nil {
		return Tables{}, err
	}
	if t.Val, err = frame.ReadFile(filepath.Join(dir, ValFile), id); err != nil {
		return Tables{}, err
	}
	if t.Test, err = frame.ReadFile(filepath.Join(dir, TestFile), id); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Exists reports whether all cleaned tables are present in dir.
func Exists(dir string) bool {
	for _, name := range []string{TrainFile, ValFile, TestFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
