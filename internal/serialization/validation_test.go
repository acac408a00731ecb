package serialization

import (
	"errors"
	"strings"
	"testing"
)

// TestValidateSegmentOffsets_NoOverlap verifies that adjacent segments pass validation.
func TestValidateSegmentOffsets_NoOverlap(t *testing.T) {
	segments := []SegmentMeta{
		{Name: "comment_text", Offset: 0, Size: 100},
		{Name: "toxic", Offset: 100, Size: 200},
		{Name: "insult", Offset: 300, Size: 150},
	}

	if err := ValidateSegmentOffsets(segments, 500); err != nil {
		t.Errorf("Expected no error for valid segments, got: %v", err)
	}
}

func TestValidateSegmentOffsets(t *testing.T) {
	tests := []struct {
		name     string
		segments []SegmentMeta
		dataSize int64
		wantType string
		wantErr  error
	}{
		{
			name: "overlap",
			segments: []SegmentMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 50, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
			wantErr:  ErrOffsetOverlap,
		},
		{
			name: "overlap by one byte",
			segments: []SegmentMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 99, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
			wantErr:  ErrOffsetOverlap,
		},
		{
			name:     "out of bounds",
			segments: []SegmentMeta{{Name: "a", Offset: 150, Size: 100}},
			dataSize: 200,
			wantType: "out_of_bounds",
			wantErr:  ErrOutOfBounds,
		},
		{
			name:     "negative offset",
			segments: []SegmentMeta{{Name: "a", Offset: -1, Size: 10}},
			dataSize: 200,
			wantType: "negative_offset",
			wantErr:  ErrNegativeOffset,
		},
		{
			name: "exact boundary",
			segments: []SegmentMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 100, Size: 100},
			},
			dataSize: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegmentOffsets(tt.segments, tt.dataSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %T (%v)", err, err)
			}
			if vErr.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", vErr.Type, tt.wantType)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSegmentName(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		wantErr error
	}{
		{name: "plain", segment: "comment_text"},
		{name: "tokens suffix", segment: "comment_text.tokens"},
		{name: "empty", segment: "", wantErr: ErrInvalidSegmentName},
		{name: "traversal", segment: "../etc/passwd", wantErr: ErrInvalidSegmentName},
		{name: "slash", segment: "a/b", wantErr: ErrInvalidSegmentName},
		{name: "backslash", segment: "a\\b", wantErr: ErrInvalidSegmentName},
		{name: "null byte", segment: "a\x00b", wantErr: ErrInvalidSegmentName},
		{name: "too long", segment: strings.Repeat("x", MaxSegmentNameLen+1), wantErr: ErrSegmentNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegmentName(tt.segment)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSegmentName(%q) = %v, want %v", tt.segment, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHeader(t *testing.T) {
	valid := func() *Header {
		return &Header{
			Rows: 2,
			Segments: []SegmentMeta{
				{Name: "comment_text", Kind: KindFeature, DType: DTypeString, Rows: 2, Offset: 0, Size: 10},
				{Name: "toxic", Kind: KindLabel, DType: DTypeInt8, Rows: 2, Offset: 10, Size: 2},
			},
		}
	}

	if err := ValidateHeader(valid(), 12, ValidationStrict); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(h *Header)
		level   ValidationLevel
		wantErr error
	}{
		{name: "duplicate", mutate: func(h *Header) { h.Segments[1].Name = "comment_text" }, wantErr: ErrDuplicateSegment},
		{name: "unknown kind", mutate: func(h *Header) { h.Segments[0].Kind = "weights" }, wantErr: ErrUnknownSegmentKind},
		{name: "unknown dtype", mutate: func(h *Header) { h.Segments[0].DType = "float16" }, wantErr: ErrUnknownSegmentDType},
		{name: "row mismatch", mutate: func(h *Header) { h.Segments[1].Rows = 3 }, wantErr: ErrRowCountMismatch},
		{name: "negative header rows", mutate: func(h *Header) { h.Rows = -1 }, wantErr: ErrNegativeRows},
		{name: "negative rows everywhere", mutate: func(h *Header) {
			h.Rows = -1
			h.Segments[0].Rows = -1
			h.Segments[1].Rows = -1
		}, wantErr: ErrNegativeRows},
		{name: "normal rejects negative rows", mutate: func(h *Header) { h.Segments[0].Rows = -1 }, level: ValidationNormal, wantErr: ErrNegativeRows},
		{name: "out of bounds", mutate: func(h *Header) { h.Segments[1].Size = 5 }, wantErr: ErrOutOfBounds},
		{name: "normal skips offsets", mutate: func(h *Header) { h.Segments[1].Size = 5 }, level: ValidationNormal},
		{name: "none skips names", mutate: func(h *Header) { h.Segments[0].Name = "../x" }, level: ValidationNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid()
			tt.mutate(h)
			err := ValidateHeader(h, 12, tt.level)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateHeader() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
