// Package schema validates tables against the column layout each stage expects.
//
// Checks never stop at the first problem: Check collects every violation into a
// Result so a single report lists everything wrong with a table.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/toxicprep/internal/frame"
)

// ErrInvalidData is matched by every ValidationError.
var ErrInvalidData = errors.New("data validation failed")

// Violation kinds.
const (
	KindEmptyTable       = "empty_table"
	KindIndexMismatch    = "index_mismatch"
	KindMissingColumn    = "missing_column"
	KindUnexpectedColumn = "unexpected_column"
	KindNonBinaryLabel   = "non_binary_label"
)

// Violation is a single schema problem.
type Violation struct {
	Table   string // Table name (e.g., "train", "test")
	Kind    string // One of the Kind* constants
	Column  string // Column involved, if any
	Details string
}

// String formats the violation for humans.
func (v Violation) String() string {
	if v.Column != "" {
		return fmt.Sprintf("%s: %s: column %q: %s", v.Table, v.Kind, v.Column, v.Details)
	}
	return fmt.Sprintf("%s: %s: %s", v.Table, v.Kind, v.Details)
}

// ValidationError carries every violation found by a check.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidData, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidData.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidData
}

// Result is the outcome of one or more checks.
type Result struct {
	Violations []Violation
}

// OK reports whether no violations were found.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Err returns nil when the result is OK and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Violations: slices.Clone(r.Violations)}
}

// Merge concatenates results.
func Merge(results ...Result) Result {
	var out Result
	for _, r := range results {
		out.Violations = append(out.Violations, r.Violations...)
	}
	return out
}

// Expectation describes what a table must look like.
type Expectation struct {
	Name     string   // Table name used in violations
	Index    string   // Required index name; empty means the table must not be indexed
	Columns  []string // Columns that must be present (inputs and/or identifier)
	Labels   []string // Label columns that must be present
	Binary   bool     // Label cells must be "0" or "1"
	Exact    bool     // No columns beyond Columns and Labels
	NonEmpty bool     // At least one row
}

// Check validates t against e.
func Check(t *frame.Table, e Expectation) Result {
	var r Result
	add := func(kind, column, details string) {
		r.Violations = append(r.Violations, Violation{Table: e.Name, Kind: kind, Column: column, Details: details})
	}

	if e.NonEmpty && t.Len() == 0 {
		add(KindEmptyTable, "", "expected at least one row")
	}
	if t.Index() != e.Index {
		add(KindIndexMismatch, "", fmt.Sprintf("expected index %q, got %q", e.Index, t.Index()))
	}

	for _, c := range e.Columns {
		if !t.HasColumn(c) {
			add(KindMissingColumn, c, "expected column is absent")
		}
	}
	for _, c := range e.Labels {
		if !t.HasColumn(c) {
			add(KindMissingColumn, c, "expected label column is absent")
		}
	}

	if e.Exact {
		for _, c := range t.Columns() {
			if !slices.Contains(e.Columns, c) && !slices.Contains(e.Labels, c) {
				add(KindUnexpectedColumn, c, "column is not part of the schema")
			}
		}
	}

	if e.Binary {
		for _, c := range e.Labels {
			col, err := t.Column(c)
			if err != nil {
				continue // already reported as missing
			}
			bad, first := 0, ""
			for _, v := range col {
				if v != "0" && v != "1" {
					if bad == 0 {
						first = v
					}
					bad++
				}
			}
			if bad > 0 {
				add(KindNonBinaryLabel, c, fmt.Sprintf("%d values outside {0, 1}, first %q", bad, first))
			}
		}
	}

	return r
}

// RawTrain is the expected layout of the downloaded train table.
func RawTrain(id string, inputs, labels []string) Expectation {
	return Expectation{
		Name:     "raw train",
		Columns:  append([]string{id}, inputs...),
		Labels:   labels,
		Binary:   true,
		Exact:    true,
		NonEmpty: true,
	}
}

// RawTest is the expected layout of the downloaded test table.
func RawTest(id string, inputs []string) Expectation {
	return Expectation{
		Name:     "raw test",
		Columns:  append([]string{id}, inputs...),
		Exact:    true,
		NonEmpty: true,
	}
}

// RawTestLabels is the expected layout of the downloaded test label table.
// Labels may still hold the -1 sentinel, so they are not checked for binarity.
func RawTestLabels(id string, labels []string) Expectation {
	return Expectation{
		Name:     "raw test labels",
		Columns:  []string{id},
		Labels:   labels,
		Exact:    true,
		NonEmpty: true,
	}
}

// Processed is the expected layout of a cleaned train, validation or test table.
func Processed(name, id string, inputs, labels []string) Expectation {
	return Expectation{
		Name:     name,
		Index:    id,
		Columns:  inputs,
		Labels:   labels,
		Binary:   true,
		Exact:    true,
		NonEmpty: true,
	}
}
