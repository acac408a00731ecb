package frame

import (
	"fmt"
	"slices"
)

// Table is an immutable table of string cells stored column by column.
type Table struct {
	index   string     // index name, empty when the table is not indexed
	keys    []string   // index values, one per row when indexed
	names   []string   // column names in order
	columns [][]string // columns[c][row]
	rows    int
}

// New creates a table from a header and row-major records.
//
// Every record must have exactly len(columns) fields.
func New(columns []string, records [][]string) (*Table, error) {
	if err := checkNames(columns); err != nil {
		return nil, err
	}

	cols := make([][]string, len(columns))
	for c := range cols {
		cols[c] = make([]string, len(records))
	}
	for r, rec := range records {
		if len(rec) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d fields, want %d", ErrRaggedRow, r+1, len(rec), len(columns))
		}
		for c, v := range rec {
			cols[c][r] = v
		}
	}

	return &Table{
		names:   slices.Clone(columns),
		columns: cols,
		rows:    len(records),
	}, nil
}

// FromColumns creates a table from named columns of equal length.
func FromColumns(names []string, columns [][]string) (*Table, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrLengthMismatch, len(names), len(columns))
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}

	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	cols := make([][]string, len(columns))
	for c, col := range columns {
		if len(col) != rows {
			return nil, fmt.Errorf("%w: column %q has %d values, want %d", ErrLengthMismatch, names[c], len(col), rows)
		}
		cols[c] = slices.Clone(col)
	}

	return &Table{
		names:   slices.Clone(names),
		columns: cols,
		rows:    rows,
	}, nil
}

func checkNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Columns returns the body column names (the index is not included).
func (t *Table) Columns() []string {
	return slices.Clone(t.names)
}

// Index returns the index name, or "" for an unindexed table.
func (t *Table) Index() string {
	return t.index
}

// Keys returns a copy of the index values.
func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

// Key returns the index value of row i.
func (t *Table) Key(i int) string {
	if t.index == "" {
		return ""
	}
	return t.keys[i]
}

// HasColumn reports whether name is a body column.
func (t *Table) HasColumn(name string) bool {
	return t.position(name) >= 0
}

func (t *Table) position(name string) int {
	return slices.Index(t.names, name)
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]string, error) {
	p := t.position(name)
	if p < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return slices.Clone(t.columns[p]), nil
}

// Value returns a single cell.
func (t *Table) Value(row int, name string) (string, error) {
	p := t.position(name)
	if p < 0 {
		return "", fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if row < 0 || row >= t.rows {
		return "", fmt.Errorf("row %d out of range [0, %d)", row, t.rows)
	}
	return t.columns[p][row], nil
}

// Row returns the body cells of row i in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.columns))
	for c, col := range t.columns {
		out[c] = col[i]
	}
	return out
}

// SetIndex moves the named column into the index.
//
// Any existing index is discarded. The column is removed from the body.
func (t *Table) SetIndex(name string) (*Table, error) {
	p := t.position(name)
	if p < 0 {
		return nil, fmt.Errorf("cannot set index: %w: %q", ErrColumnNotFound, name)
	}

	names := make([]string, 0, len(t.names)-1)
	cols := make([][]string, 0, len(t.columns)-1)
	for c, n := range t.names {
		if c == p {
			continue
		}
		names = append(names, n)
		cols = append(cols, t.columns[c])
	}

	return &Table{
		index:   name,
		keys:    slices.Clone(t.columns[p]),
		names:   names,
		columns: cols,
		rows:    t.rows,
	}, nil
}

// Select returns a table with only the named body columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([][]string, len(names))
	for i, n := range names {
		p := t.position(n)
		if p < 0 {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
		cols[i] = t.columns[p]
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	return &Table{
		index:   t.index,
		keys:    t.keys,
		names:   slices.Clone(names),
		columns: cols,
		rows:    t.rows,
	}, nil
}

// WithColumn returns a table where the named column holds values.
//
// An existing column is replaced in place; a new one is appended.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("%w: column %q has %d values, want %d", ErrLengthMismatch, name, len(values), t.rows)
	}
	names := slices.Clone(t.names)
	cols := slices.Clone(t.columns)
	if p := t.position(name); p >= 0 {
		cols[p] = slices.Clone(values)
	} else {
		names = append(names, name)
		cols = append(cols, slices.Clone(values))
	}
	return &Table{
		index:   t.index,
		keys:    t.keys,
		names:   names,
		columns: cols,
		rows:    t.rows,
	}, nil
}

// Take returns the rows at the given positions, in that order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		index:   t.index,
		names:   slices.Clone(t.names),
		columns: make([][]string, len(t.columns)),
		rows:    len(rows),
	}
	if t.index != "" {
		out.keys = make([]string, len(rows))
		for i, r := range rows {
			out.keys[i] = t.keys[r]
		}
	}
	for c, col := range t.columns {
		dst := make([]string, len(rows))
		for i, r := range rows {
			dst[i] = col[r]
		}
		out.columns[c] = dst
	}
	return out
}

// Filter returns the rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(row int) bool) *Table {
	rows := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return t.Take(rows)
}

// Join inner-joins other onto t by index.
//
// Rows keep the order of t; rows without a match in other are dropped. Both
// tables must be indexed with unique keys and must not share body columns.
func (t *Table) Join(other *Table) (*Table, error) {
	if t.index == "" || other.index == "" {
		return nil, ErrNotIndexed
	}
	if _, err := uniqueKeys(t); err != nil {
		return nil, err
	}
	lookup, err := uniqueKeys(other)
	if err != nil {
		return nil, err
	}

	names := append(slices.Clone(t.names), other.names...)
	if err := checkNames(names); err != nil {
		return nil, err
	}

	left := make([]int, 0, t.rows)
	right := make([]int, 0, t.rows)
	for i, k := range t.keys {
		if j, ok := lookup[k]; ok {
			left = append(left, i)
			right = append(right, j)
		}
	}

	l := t.Take(left)
	r := other.Take(right)
	return &Table{
		index:   t.index,
		keys:    l.keys,
		names:   names,
		columns: append(l.columns, r.columns...),
		rows:    len(left),
	}, nil
}

func uniqueKeys(t *Table) (map[string]int, error) {
	m := make(map[string]int, len(t.keys))
	for i, k := range t.keys {
		if _, ok := m[k]; ok {
			return nil, fmt.Errorf("%w: %s=%q", ErrDuplicateKey, t.index, k)
		}
		m[k] = i
	}
	return m, nil
}

// Equal reports whether both tables have the same index, columns and cells.
func (t *Table) Equal(other *Table) bool {
	if t.rows != other.rows || t.index != other.index {
		return false
	}
	if !slices.Equal(t.names, other.names) || !slices.Equal(t.keys, other.keys) {
		return false
	}
	for c := range t.columns {
		if !slices.Equal(t.columns[c], other.columns[c]) {
			return false
		}
	}
	return true
}
