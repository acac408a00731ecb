package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/born-ml/toxicprep/internal/frame"
)

// Raw file names published with the dataset.
const (
	TrainFile      = "train.csv"
	TestFile       = "test.csv"
	TestLabelsFile = "test_labels.csv"
)

// Files lists every raw file the pipeline needs, in download order.
var Files = []string{TrainFile, TestFile, TestLabelsFile}

// ErrNoSource is returned when a download is needed but the cache has no source.
var ErrNoSource = errors.New("no source configured")

var tableNames = map[string]string{
	TrainFile:      "train",
	TestFile:       "test",
	TestLabelsFile: "test labels",
}

// FetchError wraps a failure to obtain or parse one raw table.
type FetchError struct {
	File string
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	name, ok := tableNames[e.File]
	if !ok {
		name = e.File
	}
	return fmt.Sprintf("error loading %s data: %v", name, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// RawTables are the three tables exactly as published, without an index.
type RawTables struct {
	Train      *frame.Table
	Test       *frame.Table
	TestLabels *frame.Table
}

// Cache keeps the raw files in Dir and fetches missing ones from Source.
type Cache struct {
	Dir    string
	Source Source
}

// Path returns the cached location of file.
func (c *Cache) Path(file string) string {
	return filepath.Join(c.Dir, file)
}

// Exists reports whether every raw file is present and non-empty.
func (c *Cache) Exists() bool {
	for _, f := range Files {
		info, err := os.Stat(c.Path(f))
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			return false
		}
	}
	return true
}

// Download fetches every missing raw file and returns how many were fetched.
// A complete cache is left untouched and no request is made.
func (c *Cache) Download(ctx context.Context) (int, error) {
	if c.Exists() {
		return 0, nil
	}
	if c.Source == nil {
		return 0, ErrNoSource
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return 0, fmt.Errorf("failed to create raw dir: %w", err)
	}

	fetched := 0
	for _, f := range Files {
		if info, err := os.Stat(c.Path(f)); err == nil && info.Size() > 0 {
			continue
		}
		if err := c.fetch(ctx, f); err != nil {
			return fetched, &FetchError{File: f, Err: err}
		}
		fetched++
	}
	return fetched, nil
}

func (c *Cache) fetch(ctx context.Context, file string) (err error) {
	tmp, err := os.CreateTemp(c.Dir, "."+file+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = c.Source.Fetch(ctx, file, tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), c.Path(file)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", file, err)
	}
	return nil
}

// Load reads the three cached tables. Nothing is fetched.
func (c *Cache) Load() (RawTables, error) {
	var raw RawTables
	targets := []struct {
		file string
		dst  **frame.Table
	}{
		{TrainFile, &raw.Train},
		{TestFile, &raw.Test},
		{TestLabelsFile, &raw.TestLabels},
	}
	for _, t := range targets {
		tbl, err := frame.ReadFile(c.Path(t.file), "")
		if err != nil {
			return RawTables{}, &FetchError{File: t.file, Err: err}
		}
		*t.dst = tbl
	}
	return raw, nil
}

// LoadRawTables downloads any missing file and then loads all three tables.
func (c *Cache) LoadRawTables(ctx context.Context) (RawTables, error) {
	if _, err := c.Download(ctx); err != nil {
		return RawTables{}, err
	}
	return c.Load()
}
