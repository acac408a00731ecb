package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/toxicprep/internal/frame"
)

var (
	inputs = []string{"comment_text"}
	labels = []string{"toxic", "insult"}
)

func table(t *testing.T, index string, columns []string, records [][]string) *frame.Table {
	t.Helper()
	tbl, err := frame.New(columns, records)
	require.NoError(t, err)
	if index != "" {
		tbl, err = tbl.SetIndex(index)
		require.NoError(t, err)
	}
	return tbl
}

func kinds(r Result) []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Kind
	}
	return out
}

func TestCheck_ProcessedOK(t *testing.T) {
	tbl := table(t, "id", []string{"id", "comment_text", "toxic", "insult"}, [][]string{
		{"1", "hi", "0", "1"},
		{"2", "yo", "1", "0"},
	})

	r := Check(tbl, Processed("train", "id", inputs, labels))
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
}

func TestCheck_Violations(t *testing.T) {
	tests := []struct {
		name  string
		tbl   func(t *testing.T) *frame.Table
		kinds []string
	}{
		{
			name: "empty table",
			tbl: func(t *testing.T) *frame.Table {
				return table(t, "id", []string{"id", "comment_text", "toxic", "insult"}, nil)
			},
			kinds: []string{KindEmptyTable},
		},
		{
			name: "not indexed",
			tbl: func(t *testing.T) *frame.Table {
				return table(t, "", []string{"comment_text", "toxic", "insult"}, [][]string{{"a", "0", "0"}})
			},
			kinds: []string{KindIndexMismatch},
		},
		{
			name: "missing label and extra column",
			tbl: func(t *testing.T) *frame.Table {
				return table(t, "id", []string{"id", "comment_text", "toxic", "extra"}, [][]string{{"1", "a", "0", "x"}})
			},
			kinds: []string{KindMissingColumn, KindUnexpectedColumn},
		},
		{
			name: "non binary labels",
			tbl: func(t *testing.T) *frame.Table {
				return table(t, "id", []string{"id", "comment_text", "toxic", "insult"}, [][]string{
					{"1", "a", "-1", "0"},
					{"2", "b", "2", "1"},
				})
			},
			kinds: []string{KindNonBinaryLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Check(tt.tbl(t), Processed("train", "id", inputs, labels))
			assert.Equal(t, tt.kinds, kinds(r))

			err := r.Err()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData))

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Len(t, vErr.Violations, len(tt.kinds))
		})
	}
}

func TestCheck_NonBinaryDetails(t *testing.T) {
	tbl := table(t, "id", []string{"id", "comment_text", "toxic", "insult"}, [][]string{
		{"1", "a", "-1", "0"},
		{"2", "b", "2", "1"},
	})

	r := Check(tbl, Processed("test", "id", inputs, labels))
	require.Len(t, r.Violations, 1)
	v := r.Violations[0]
	assert.Equal(t, "test", v.Table)
	assert.Equal(t, "toxic", v.Column)
	assert.Contains(t, v.Details, `2 values outside {0, 1}, first "-1"`)
}

func TestRawExpectations(t *testing.T) {
	train := table(t, "", []string{"id", "comment_text", "toxic", "insult"}, [][]string{{"1", "a", "0", "1"}})
	test := table(t, "", []string{"id", "comment_text"}, [][]string{{"9", "b"}})
	testLabels := table(t, "", []string{"id", "toxic", "insult"}, [][]string{{"9", "-1", "-1"}})

	r := Merge(
		Check(train, RawTrain("id", inputs, labels)),
		Check(test, RawTest("id", inputs)),
		Check(testLabels, RawTestLabels("id", labels)),
	)
	assert.True(t, r.OK(), "violations: %v", r.Violations)

	// Test labels are not part of the raw test schema.
	r = Check(testLabels, RawTest("id", inputs))
	assert.ElementsMatch(t, []string{KindMissingColumn, KindUnexpectedColumn, KindUnexpectedColumn}, kinds(r))
}
