// Package explore summarises cleaned tables for a human reader.
//
// Everything here is read-only over its input tables. A Report can be printed
// as text or written as an Excel workbook with one bar chart per label.
package explore

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/toxicprep/internal/frame"
)

// ColumnCount is the number of missing cells in one column.
type ColumnCount struct {
	Column  string
	Missing int
}

// ValueCount is the frequency of one distinct value in a column.
type ValueCount struct {
	Value    string
	Count    int
	Fraction float64 // Count divided by the number of rows
}

// LabelStat summarises one binary label column.
type LabelStat struct {
	Label    string
	Rows     int
	Positive int
	Mean     float64
	StdDev   float64
}

// naTokens are the cell values read as missing, besides the empty string.
// The set matches the default NA tokens of pandas read_csv. Whitespace-only
// cells are text.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {},
	"None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a cell counts as missing: empty, or exactly one
// of the NA tokens.
func IsMissing(v string) bool {
	if v == "" {
		return true
	}
	_, ok := naTokens[v]
	return ok
}

// MissingValues counts missing cells (see IsMissing) in every body column.
func MissingValues(t *frame.Table) []ColumnCount {
	cols := t.Columns()
	out := make([]ColumnCount, len(cols))
	for i, name := range cols {
		values, _ := t.Column(name) // name comes from t
		missing := 0
		for _, v := range values {
			if IsMissing(v) {
				missing++
			}
		}
		out[i] = ColumnCount{Column: name, Missing: missing}
	}
	return out
}

// ValueCounts returns the distinct values of column, most frequent first.
// Ties are ordered by value. With normalize set Fraction holds the share of
// rows; otherwise it is zero.
func ValueCounts(t *frame.Table, column string, normalize bool) ([]ValueCount, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		vc := ValueCount{Value: v, Count: c}
		if normalize && len(values) > 0 {
			vc.Fraction = float64(c) / float64(len(values))
		}
		out = append(out, vc)
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out, nil
}

// LabelStats computes the positive rate and spread of each label column.
func LabelStats(t *frame.Table, labels []string) ([]LabelStat, error) {
	out := make([]LabelStat, 0, len(labels))
	for _, name := range labels {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}

		xs := make([]float64, len(values))
		positive := 0
		for i, v := range values {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("label %q row %d: not numeric: %q", name, i+1, v)
			}
			xs[i] = f
			if f == 1 {
				positive++
			}
		}

		s := LabelStat{Label: name, Rows: len(xs), Positive: positive}
		switch len(xs) {
		case 0:
		case 1:
			s.Mean = xs[0]
		default:
			s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
		}
		out = append(out, s)
	}
	return out, nil
}

// Named pairs a table with the name it is reported under.
type Named struct {
	Name  string
	Table *frame.Table
}

// TableSummary is the exploration result for one table.
type TableSummary struct {
	Name    string
	Rows    int
	Missing []ColumnCount
	Counts  map[string][]ValueCount // by label, normalized
	Stats   []LabelStat
}

// Report is the exploration result for a set of tables.
type Report struct {
	Labels []string
	Tables []TableSummary
}

// Build explores every table.
func Build(tables []Named, labels []string) (*Report, error) {
	r := &Report{Labels: slices.Clone(labels)}
	for _, nt := range tables {
		s := TableSummary{
			Name:    nt.Name,
			Rows:    nt.Table.Len(),
			Missing: MissingValues(nt.Table),
			Counts:  make(map[string][]ValueCount, len(labels)),
		}
		for _, l := range labels {
			vc, err := ValueCounts(nt.Table, l, true)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", nt.Name, err)
			}
			s.Counts[l] = vc
		}
		stats, err := LabelStats(nt.Table, labels)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", nt.Name, err)
		}
		s.Stats = stats
		r.Tables = append(r.Tables, s)
	}
	return r, nil
}

// values returns the distinct values of label across all tables, sorted.
func (r *Report) values(label string) []string {
	var out []string
	for _, t := range r.Tables {
		for _, vc := range t.Counts[label] {
			if !slices.Contains(out, vc.Value) {
				out = append(out, vc.Value)
			}
		}
	}
	slices.Sort(out)
	return out
}

// fraction returns the normalized count of value for label in table t.
func fraction(t TableSummary, label, value string) float64 {
	for _, vc := range t.Counts[label] {
		if vc.Value == value {
			return vc.Fraction
		}
	}
	return 0
}
