package serialization

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// ReaderOptions configures how a .tds file is read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// File is a decoded .tds file held in memory.
type File struct {
	header   Header
	flags    uint32
	checksum [32]byte
	data     []byte // uncompressed data section
}

// ReadFile opens and decodes the .tds file at path.
func ReadFile(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: path comes from pipeline configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	file, err := Decode(bufio.NewReader(f), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Decode reads a complete .tds stream from r.
func Decode(r io.Reader, opts ReaderOptions) (*File, error) {
	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	fh, err := parseFixedHeader(buf)
	if err != nil {
		return nil, err
	}

	if fh.headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if fh.dataSize > MaxDataSize {
		return nil, ErrDataTooLarge
	}

	headerBytes := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var h Header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	if _, err := io.CopyN(io.Discard, r, padding(int64(fh.headerSize))); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	dataSize := int64(fh.dataSize)
	if err := ValidateHeader(&h, dataSize, opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	src := r
	if fh.flags&FlagCompressed != 0 {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip data section: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	data, err := io.ReadAll(io.LimitReader(src, dataSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read data section: %w", err)
	}
	if int64(len(data)) != dataSize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrDataSizeMismatch, len(data), dataSize)
	}

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), fh.checksum); err != nil {
			return nil, err
		}
	}

	return &File{header: h, flags: fh.flags, checksum: fh.checksum, data: data}, nil
}

// Header returns the file header.
func (f *File) Header() Header {
	return f.header
}

// Flags returns the fixed header flags.
func (f *File) Flags() uint32 {
	return f.flags
}

// Checksum returns the stored SHA-256 of the data section.
func (f *File) Checksum() [32]byte {
	return f.checksum
}

// SegmentNames returns segment names in file order.
func (f *File) SegmentNames() []string {
	names := make([]string, len(f.header.Segments))
	for i, s := range f.header.Segments {
		names[i] = s.Name
	}
	return names
}

// SegmentData returns the raw bytes of the named segment.
func (f *File) SegmentData(name string) (SegmentMeta, []byte, error) {
	meta, ok := f.header.Segment(name)
	if !ok {
		return SegmentMeta{}, nil, fmt.Errorf("%w: %q", ErrSegmentNotFound, name)
	}
	if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(f.data)) {
		return SegmentMeta{}, nil, fmt.Errorf("%w: %q", ErrOutOfBounds, name)
	}
	return meta, f.data[meta.Offset : meta.Offset+meta.Size], nil
}

func (f *File) segment(name, dtype string) (SegmentMeta, []byte, error) {
	meta, data, err := f.SegmentData(name)
	if err != nil {
		return meta, nil, err
	}
	if meta.DType != dtype {
		return meta, nil, fmt.Errorf("%w: %q is %s, not %s", ErrDTypeMismatch, name, meta.DType, dtype)
	}
	return meta, data, nil
}

// Strings decodes a string segment.
func (f *File) Strings(name string) ([]string, error) {
	meta, data, err := f.segment(name, DTypeString)
	if err != nil {
		return nil, err
	}
	return DecodeStrings(data, meta.Rows)
}

// Int8 decodes an int8 segment.
func (f *File) Int8(name string) ([]int8, error) {
	meta, data, err := f.segment(name, DTypeInt8)
	if err != nil {
		return nil, err
	}
	return DecodeInt8(data, meta.Rows)
}

// Ragged decodes a variable-length int32 segment.
func (f *File) Ragged(name string) ([][]int32, error) {
	meta, data, err := f.segment(name, DTypeInt32Ragged)
	if err != nil {
		return nil, err
	}
	return DecodeRagged(data, meta.Rows)
}
