package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch    = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap       = errors.New("segment offsets overlap")
	ErrOutOfBounds         = errors.New("segment extends beyond data section")
	ErrNegativeOffset      = errors.New("negative offset or size")
	ErrTooManySegments     = errors.New("too many segments in file")
	ErrSegmentNameTooLong  = errors.New("segment name too long")
	ErrInvalidSegmentName  = errors.New("invalid segment name")
	ErrDuplicateSegment    = errors.New("duplicate segment name")
	ErrRowCountMismatch    = errors.New("segment row count differs from header")
	ErrNegativeRows        = errors.New("negative row count")
	ErrHeaderTooLarge      = errors.New("header exceeds maximum size")
	ErrDataTooLarge        = errors.New("data section exceeds maximum size")
	ErrInvalidMagic        = errors.New("invalid magic bytes")
	ErrUnsupportedVersion  = errors.New("unsupported format version")
	ErrSegmentNotFound     = errors.New("segment not found")
	ErrDTypeMismatch       = errors.New("segment has a different dtype")
	ErrCorruptSegment      = errors.New("segment data is malformed")
	ErrDataSizeMismatch    = errors.New("data section size differs from fixed header")
	ErrUnknownSegmentKind  = errors.New("unknown segment kind")
	ErrUnknownSegmentDType = errors.New("unknown segment dtype")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type     string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Segment  string // Primary segment name involved
	Segment2 string // Secondary segment name (for overlap errors)
	Details  string // Additional details
	Err      error  // Matching sentinel error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Segment2 != "" {
		return fmt.Sprintf("%s: segments %q and %q: %s", e.Type, e.Segment, e.Segment2, e.Details)
	}
	if e.Segment != "" {
		return fmt.Sprintf("%s: segment %q: %s", e.Type, e.Segment, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap returns the matching sentinel so errors.Is works on validation failures.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
