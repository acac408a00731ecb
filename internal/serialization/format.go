package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// Format constants.
const (
	MagicBytes       = "TXDS"
	FormatVersion    = 1
	HeaderAlignment  = 64   // Data section starts on a 64-byte boundary
	FixedHeaderSize  = 64   // Fixed header size (0x40 bytes)
	ChecksumSize     = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset   = 0x20 // Checksum offset in the fixed header
	headerSizeOffset = 0x10
	dataSizeOffset   = 0x18
)

// Segment data types.
const (
	DTypeString      = "string"
	DTypeInt8        = "int8"
	DTypeInt32Ragged = "int32_ragged"
)

// Segment kinds.
const (
	KindFeature = "feature"
	KindLabel   = "label"
	KindTokens  = "tokens"
	KindIndex   = "index"
)

// Flags for the .tds format.
const (
	FlagCompressed  uint32 = 1 << 0 // bit 0: gzip compression
	FlagHasTokens   uint32 = 1 << 1 // bit 1: token segments included
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .tds file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Generator     string            `json:"generator"` // Tool version that wrote the file
	CreatedAt     time.Time         `json:"created_at"`
	Rows          int               `json:"rows"`
	BatchSize     int               `json:"batch_size"`
	Shuffle       bool              `json:"shuffle"`
	Seed          uint64            `json:"seed"`
	Encoding      string            `json:"encoding,omitempty"` // tiktoken encoding of token segments
	Segments      []SegmentMeta     `json:"segments"`
	Metadata      map[string]string `json:"metadata"`
}

// SegmentMeta describes a column segment in the data section.
type SegmentMeta struct {
	Name   string `json:"name"`   // Column name (e.g., "comment_text")
	Kind   string `json:"kind"`   // feature, label, tokens or index
	DType  string `json:"dtype"`  // string, int8 or int32_ragged
	Rows   int    `json:"rows"`   // Number of rows encoded
	Offset int64  `json:"offset"` // Offset in the uncompressed data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Segment returns the metadata of the named segment.
func (h *Header) Segment(name string) (SegmentMeta, bool) {
	for _, s := range h.Segments {
		if s.Name == name {
			return s, true
		}
	}
	return SegmentMeta{}, false
}

// SegmentsOfKind returns the segments of the given kind in file order.
func (h *Header) SegmentsOfKind(kind string) []SegmentMeta {
	var out []SegmentMeta
	for _, s := range h.Segments {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ValidateChecksum compares computed checksum against stored checksum.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}

// fixedHeader is the decoded 64-byte prefix of a .tds file.
type fixedHeader struct {
	version    uint32
	flags      uint32
	headerSize uint64
	dataSize   uint64
	checksum   [32]byte
}

func (f fixedHeader) marshal() []byte {
	buf := make([]byte, FixedHeaderSize)
	copy(buf[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], f.version)
	binary.LittleEndian.PutUint32(buf[8:12], f.flags)
	binary.LittleEndian.PutUint64(buf[headerSizeOffset:headerSizeOffset+8], f.headerSize)
	binary.LittleEndian.PutUint64(buf[dataSizeOffset:dataSizeOffset+8], f.dataSize)
	copy(buf[ChecksumOffset:ChecksumOffset+ChecksumSize], f.checksum[:])
	return buf
}

func parseFixedHeader(buf []byte) (fixedHeader, error) {
	var f fixedHeader
	if len(buf) < FixedHeaderSize {
		return f, fmt.Errorf("fixed header too short: %d bytes", len(buf))
	}
	if string(buf[0:4]) != MagicBytes {
		return f, ErrInvalidMagic
	}
	f.version = binary.LittleEndian.Uint32(buf[4:8])
	if f.version != FormatVersion {
		return f, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, f.version, FormatVersion)
	}
	f.flags = binary.LittleEndian.Uint32(buf[8:12])
	f.headerSize = binary.LittleEndian.Uint64(buf[headerSizeOffset : headerSizeOffset+8])
	f.dataSize = binary.LittleEndian.Uint64(buf[dataSizeOffset : dataSizeOffset+8])
	copy(f.checksum[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])
	return f, nil
}

// padding returns the number of zero bytes after the JSON header.
func padding(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
