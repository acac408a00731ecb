package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize     = 16 * 1024 * 1024 // 16MB - maximum JSON header size
	MaxDataSize       = 16 << 30         // 16GB - maximum uncompressed data section
	MaxSegmentCount   = 10_000           // Maximum number of segments in a file
	MaxSegmentNameLen = 1024             // Maximum segment name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and counts but not offsets.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateSegmentOffsets checks for overlapping segments and out-of-bounds access.
func ValidateSegmentOffsets(segments []SegmentMeta, dataSize int64) error {
	if len(segments) > MaxSegmentCount {
		return &ValidationError{
			Type:    "too_many_segments",
			Details: fmt.Sprintf("got %d, max %d", len(segments), MaxSegmentCount),
			Err:     ErrTooManySegments,
		}
	}

	sorted := make([]SegmentMeta, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, s := range sorted {
		if s.Offset < 0 || s.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Segment: s.Name,
				Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", s.Offset, s.Size),
				Err:     ErrNegativeOffset,
			}
		}

		if s.Offset+s.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Segment: s.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", s.Offset, s.Size, dataSize),
				Err:     ErrOutOfBounds,
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if s.Offset+s.Size > next.Offset {
				return &ValidationError{
					Type:     "offset_overlap",
					Segment:  s.Name,
					Segment2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						s.Offset, s.Offset+s.Size, next.Offset, next.Offset+next.Size),
					Err: ErrOffsetOverlap,
				}
			}
		}
	}

	return nil
}

// ValidateSegmentName rejects empty names, path fragments and control bytes.
// Segment names come from column names, which end up in directory listings and logs.
func ValidateSegmentName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty segment name", Err: ErrInvalidSegmentName}
	}
	if len(name) > MaxSegmentNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Segment: name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxSegmentNameLen),
			Err:     ErrSegmentNameTooLong,
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{
			Type:    "invalid_name",
			Segment: name,
			Details: "contains '..'",
			Err:     ErrInvalidSegmentName,
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{
			Type:    "invalid_name",
			Segment: name,
			Details: "contains path separator (/ or \\)",
			Err:     ErrInvalidSegmentName,
		}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{
			Type:    "invalid_name",
			Segment: name,
			Details: "contains null byte",
			Err:     ErrInvalidSegmentName,
		}
	}
	return nil
}

func validKind(kind string) bool {
	switch kind {
	case KindFeature, KindLabel, KindTokens, KindIndex:
		return true
	}
	return false
}

func validDType(dtype string) bool {
	switch dtype {
	case DTypeString, DTypeInt8, DTypeInt32Ragged:
		return true
	}
	return false
}

// ValidateHeader checks the JSON header against the data section size.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Segments) > MaxSegmentCount {
		return &ValidationError{
			Type:    "too_many_segments",
			Details: fmt.Sprintf("got %d, max %d", len(h.Segments), MaxSegmentCount),
			Err:     ErrTooManySegments,
		}
	}

	if h.Rows < 0 {
		return &ValidationError{Type: "negative_rows", Details: fmt.Sprintf("header has %d rows", h.Rows), Err: ErrNegativeRows}
	}

	seen := make(map[string]struct{}, len(h.Segments))
	for _, s := range h.Segments {
		if err := ValidateSegmentName(s.Name); err != nil {
			return err
		}
		if s.Rows < 0 {
			return &ValidationError{Type: "negative_rows", Segment: s.Name, Details: fmt.Sprintf("segment has %d rows", s.Rows), Err: ErrNegativeRows}
		}
		if _, dup := seen[s.Name]; dup {
			return &ValidationError{Type: "duplicate_segment", Segment: s.Name, Details: "name used twice", Err: ErrDuplicateSegment}
		}
		seen[s.Name] = struct{}{}

		if !validKind(s.Kind) {
			return &ValidationError{Type: "unknown_kind", Segment: s.Name, Details: fmt.Sprintf("kind %q", s.Kind), Err: ErrUnknownSegmentKind}
		}
		if !validDType(s.DType) {
			return &ValidationError{Type: "unknown_dtype", Segment: s.Name, Details: fmt.Sprintf("dtype %q", s.DType), Err: ErrUnknownSegmentDType}
		}
	}

	if level == ValidationStrict {
		for _, s := range h.Segments {
			if s.Rows != h.Rows {
				return &ValidationError{
					Type:    "row_count_mismatch",
					Segment: s.Name,
					Details: fmt.Sprintf("segment has %d rows, header %d", s.Rows, h.Rows),
					Err:     ErrRowCountMismatch,
				}
			}
		}
		if err := ValidateSegmentOffsets(h.Segments, dataSize); err != nil {
			return err
		}
	}

	return nil
}
