package serialization

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeStrings encodes a string column.
func EncodeStrings(values []string) []byte {
	size := 0
	for _, v := range values {
		size += binary.MaxVarintLen64 + len(v)
	}
	buf := make([]byte, 0, size)
	for _, v := range values {
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	return buf
}

// DecodeStrings decodes rows strings from data.
func DecodeStrings(data []byte, rows int) ([]string, error) {
	if err := checkRows(len(data), rows); err != nil {
		return nil, err
	}
	out := make([]string, rows)
	pos := 0
	for i := range rows {
		n, k := binary.Uvarint(data[pos:])
		if k <= 0 {
			return nil, fmt.Errorf("%w: bad length prefix at row %d", ErrCorruptSegment, i)
		}
		pos += k
		if n > uint64(len(data)-pos) {
			return nil, fmt.Errorf("%w: row %d overruns segment", ErrCorruptSegment, i)
		}
		out[i] = string(data[pos : pos+int(n)])
		pos += int(n)
	}
	if pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSegment, len(data)-pos)
	}
	return out, nil
}

// EncodeInt8 encodes an int8 column.
func EncodeInt8(values []int8) []byte {
	buf := make([]byte, len(values))
	for i, v := range values {
		buf[i] = byte(v)
	}
	return buf
}

// DecodeInt8 decodes rows int8 values from data.
func DecodeInt8(data []byte, rows int) ([]int8, error) {
	if len(data) != rows {
		return nil, fmt.Errorf("%w: %d bytes for %d rows", ErrCorruptSegment, len(data), rows)
	}
	out := make([]int8, rows)
	for i, b := range data {
		out[i] = int8(b)
	}
	return out, nil
}

// EncodeRagged encodes variable-length int32 rows such as token IDs.
func EncodeRagged(values [][]int32) []byte {
	size := 0
	for _, row := range values {
		size += binary.MaxVarintLen64 + 4*len(row)
	}
	buf := make([]byte, 0, size)
	for _, row := range values {
		buf = binary.AppendUvarint(buf, uint64(len(row)))
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v)) //nolint:gosec // G115: bit-preserving
		}
	}
	return buf
}

// DecodeRagged decodes rows variable-length int32 rows from data.
func DecodeRagged(data []byte, rows int) ([][]int32, error) {
	if err := checkRows(len(data), rows); err != nil {
		return nil, err
	}
	out := make([][]int32, rows)
	pos := 0
	for i := range rows {
		n, k := binary.Uvarint(data[pos:])
		if k <= 0 {
			return nil, fmt.Errorf("%w: bad count prefix at row %d", ErrCorruptSegment, i)
		}
		pos += k
		if n > math.MaxInt32 || n*4 > uint64(len(data)-pos) {
			return nil, fmt.Errorf("%w: row %d overruns segment", ErrCorruptSegment, i)
		}
		row := make([]int32, n)
		for j := range row {
			row[j] = int32(binary.LittleEndian.Uint32(data[pos:])) //nolint:gosec // G115: bit-preserving
			pos += 4
		}
		out[i] = row
	}
	if pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSegment, len(data)-pos)
	}
	return out, nil
}

// checkRows rejects row counts that a segment of size bytes cannot hold.
// Every row carries at least a one-byte prefix.
func checkRows(size, rows int) error {
	if rows < 0 || rows > size {
		return fmt.Errorf("%w: %d rows in %d bytes", ErrCorruptSegment, rows, size)
	}
	return nil
}
