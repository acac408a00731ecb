package frame

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a file's content is encoded.
type Compression int

// Supported content encodings, detected from magic bytes.
const (
	Plain Compression = iota
	Gzip
	Zip
	XZ
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK\x03\x04")
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// String returns the codec name.
func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zip:
		return "zip"
	case XZ:
		return "xz"
	default:
		return "plain"
	}
}

// Detect returns the compression indicated by the leading bytes of a file.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zipMagic):
		return Zip
	case bytes.HasPrefix(head, xzMagic):
		return XZ
	default:
		return Plain
	}
}

// ReadFile reads a CSV file, transparently decompressing gzip, zip and xz
// content. When index is not empty the named column becomes the index.
func ReadFile(path, index string) (*Table, error) {
	//nolint:gosec // G304: path comes from pipeline configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(xzMagic))

	var r io.Reader
	switch Detect(head) {
	case Gzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case Zip:
		zr, closer, err := openZipEntry(br, filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open zip archive %s: %w", path, err)
		}
		defer closer.Close()
		r = zr
	case XZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open xz stream %s: %w", path, err)
		}
		r = xr
	default:
		r = br
	}

	t, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if index == "" {
		return t, nil
	}
	return t.SetIndex(index)
}

// openZipEntry picks the archive member matching name, falling back to the
// first .csv member.
func openZipEntry(r io.Reader, name string) (io.Reader, io.Closer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}

	base := strings.TrimSuffix(name, ".zip")
	var pick *zip.File
	for _, f := range zr.File {
		if f.Name == base {
			pick = f
			break
		}
		if pick == nil && strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			pick = f
		}
	}
	if pick == nil {
		return nil, nil, fmt.Errorf("no CSV member in archive")
	}
	rc, err := pick.Open()
	if err != nil {
		return nil, nil, err
	}
	return rc, rc, nil
}

// WriteFile writes t as CSV, gzip-compressed when path ends in ".gz".
//
// The file is written to a temporary name and renamed into place.
func WriteFile(path string, t *Table) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(bw)
		w = gz
	}

	if err = WriteCSV(w, t); err != nil {
		return err
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
