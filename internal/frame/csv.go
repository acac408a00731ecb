package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadCSV parses CSV content with a header row into an unindexed table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	return New(header, records)
}

// WriteCSV writes t with a header row. The index, if any, is the first column.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)

	header := t.Columns()
	if t.index != "" {
		header = append([]string{t.index}, header...)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < t.rows; i++ {
		off := 0
		if t.index != "" {
			record[0] = t.keys[i]
			off = 1
		}
		for c, col := range t.columns {
			record[off+c] = col[i]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
