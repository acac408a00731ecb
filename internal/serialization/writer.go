package serialization

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Generator is recorded in every header written by this package.
const Generator = "toxicprep/1"

// Writer accumulates column segments and writes them as a single .tds file.
type Writer struct {
	header   Header
	data     bytes.Buffer
	compress bool
}

// NewWriter creates a writer. The header's segments, version and size fields
// are filled in as segments are added.
func NewWriter(h Header) *Writer {
	h.FormatVersion = FormatVersion
	h.Segments = nil
	if h.Generator == "" {
		h.Generator = Generator
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return &Writer{header: h, compress: true}
}

// SetCompression toggles gzip compression of the data section (on by default).
func (w *Writer) SetCompression(on bool) {
	w.compress = on
}

func (w *Writer) add(name, kind, dtype string, rows int, payload []byte) error {
	if err := ValidateSegmentName(name); err != nil {
		return err
	}
	if _, dup := w.header.Segment(name); dup {
		return fmt.Errorf("%w: %q", ErrDuplicateSegment, name)
	}
	if !validKind(kind) {
		return fmt.Errorf("%w: %q", ErrUnknownSegmentKind, kind)
	}
	if rows != w.header.Rows {
		return fmt.Errorf("%w: segment %q has %d rows, header %d", ErrRowCountMismatch, name, rows, w.header.Rows)
	}

	w.header.Segments = append(w.header.Segments, SegmentMeta{
		Name:   name,
		Kind:   kind,
		DType:  dtype,
		Rows:   rows,
		Offset: int64(w.data.Len()),
		Size:   int64(len(payload)),
	})
	w.data.Write(payload)
	return nil
}

// AddStrings adds a string column.
func (w *Writer) AddStrings(name, kind string, values []string) error {
	return w.add(name, kind, DTypeString, len(values), EncodeStrings(values))
}

// AddInt8 adds an int8 column.
func (w *Writer) AddInt8(name, kind string, values []int8) error {
	return w.add(name, kind, DTypeInt8, len(values), EncodeInt8(values))
}

// AddRagged adds a column of variable-length int32 rows.
func (w *Writer) AddRagged(name, kind string, values [][]int32) error {
	return w.add(name, kind, DTypeInt32Ragged, len(values), EncodeRagged(values))
}

// WriteTo writes the complete file to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	h := w.header
	if h.Metadata == nil {
		h.Metadata = make(map[string]string)
	}

	headerJSON, err := json.Marshal(h)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return 0, ErrHeaderTooLarge
	}

	data := w.data.Bytes()
	fh := fixedHeader{
		version:    FormatVersion,
		headerSize: uint64(len(headerJSON)),
		dataSize:   uint64(len(data)),
		checksum:   ComputeChecksum(data),
	}
	if w.compress {
		fh.flags |= FlagCompressed
	}
	if len(h.SegmentsOfKind(KindTokens)) > 0 {
		fh.flags |= FlagHasTokens
	}
	if len(h.Metadata) > 0 {
		fh.flags |= FlagHasMetadata
	}

	cw := &countingWriter{w: out}
	if _, err := cw.Write(fh.marshal()); err != nil {
		return cw.n, fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := cw.Write(headerJSON); err != nil {
		return cw.n, fmt.Errorf("failed to write header: %w", err)
	}
	if pad := padding(int64(len(headerJSON))); pad > 0 {
		if _, err := cw.Write(make([]byte, pad)); err != nil {
			return cw.n, fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if !w.compress {
		if _, err := cw.Write(data); err != nil {
			return cw.n, fmt.Errorf("failed to write data section: %w", err)
		}
		return cw.n, nil
	}

	gz := gzip.NewWriter(cw)
	if _, err := gz.Write(data); err != nil {
		return cw.n, fmt.Errorf("failed to compress data section: %w", err)
	}
	if err := gz.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return cw.n, nil
}

// WriteFile writes the file to path through a temporary file and rename.
func (w *Writer) WriteFile(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if _, err = w.WriteTo(bw); err != nil {
		return err
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

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
