package preprocess

import (
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/toxicprep/internal/acquire"
	"github.com/born-ml/toxicprep/internal/frame"
	"github.com/born-ml/toxicprep/internal/schema"
)

var labels = []string{"toxic", "severe_toxic", "obscene", "threat", "insult", "identity_hate"}

func mustTable(t *testing.T, columns []string, records [][]string) *frame.Table {
	t.Helper()
	tbl, err := frame.New(columns, records)
	require.NoError(t, err)
	return tbl
}

func mockRaw(t *testing.T) acquire.RawTables {
	t.Helper()
	header := append([]string{"id", "comment_text"}, labels...)
	train := mustTable(t, header, [][]string{
		{"1", "This is a comment", "0", "0", "0", "0", "0", "0"},
		{"2", "This is another comment", "1", "0", "1", "0", "1", "0"},
		{"3", "Yet another comment", "0", "0", "0", "0", "0", "0"},
		{"4", "More comments here", "1", "0", "1", "0", "1", "0"},
		{"5", "Final comment", "0", "0", "0", "0", "0", "0"},
	})
	test := mustTable(t, []string{"id", "comment_text"}, [][]string{
		{"1", "This is a test comment"},
		{"2", "This is another test comment"},
		{"3", "Yet another test comment"},
		{"4", "More test comments here"},
		{"5", "Final test comment"},
	})
	testLabels := mustTable(t, append([]string{"id"}, labels...), [][]string{
		{"1", "-1", "-1", "-1", "-1", "-1", "-1"},
		{"2", "0", "1", "0", "0", "1", "0"},
		{"3", "-1", "-1", "-1", "-1", "-1", "-1"},
		{"4", "0", "0", "0", "0", "0", "1"},
		{"5", "0", "0", "0", "0", "0", "0"},
	})
	return acquire.RawTables{Train: train, Test: test, TestLabels: testLabels}
}

func defaultOptions() Options {
	return Options{
		ID:          "id",
		Inputs:      []string{"comment_text"},
		Labels:      labels,
		ValFraction: 0.2,
		Seed:        0,
		Normalize:   true,
	}
}

func TestIndexByID(t *testing.T) {
	raw := mockRaw(t)

	indexed, err := IndexByID(raw.Train, "id")
	require.NoError(t, err)
	assert.Equal(t, "id", indexed.Index())
	assert.False(t, indexed.HasColumn("id"))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, indexed.Keys())

	_, err = IndexByID(raw.Train, "row_id")
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestJoinLabels(t *testing.T) {
	tests := []struct {
		name      string
		test      [][]string
		labels    [][]string
		wantKeys  []string
		wantErrIs error
	}{
		{
			name:     "all matched",
			test:     [][]string{{"1", "a"}, {"2", "b"}},
			labels:   [][]string{{"2", "0"}, {"1", "1"}},
			wantKeys: []string{"1", "2"},
		},
		{
			name:     "unmatched rows dropped",
			test:     [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}},
			labels:   [][]string{{"3", "0"}, {"9", "1"}},
			wantKeys: []string{"3"},
		},
		{
			name:      "duplicate test id",
			test:      [][]string{{"6", "a"}, {"7", "b"}, {"6", "c"}},
			labels:    [][]string{{"6", "0"}, {"7", "1"}},
			wantErrIs: frame.ErrDuplicateKey,
		},
		{
			name:      "duplicate label id",
			test:      [][]string{{"6", "a"}},
			labels:    [][]string{{"6", "0"}, {"6", "1"}},
			wantErrIs: frame.ErrDuplicateKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test, err := IndexByID(mustTable(t, []string{"id", "comment_text"}, tt.test), "id")
			require.NoError(t, err)
			lbl, err := IndexByID(mustTable(t, []string{"id", "toxic"}, tt.labels), "id")
			require.NoError(t, err)

			joined, err := JoinLabels(test, lbl)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, joined.Keys())
			assert.Equal(t, []string{"comment_text", "toxic"}, joined.Columns())
			assert.LessOrEqual(t, joined.Len(), min(test.Len(), lbl.Len()))
		})
	}
}

func TestDropUnscored(t *testing.T) {
	raw := mockRaw(t)
	test, err := IndexByID(raw.Test, "id")
	require.NoError(t, err)
	lbl, err := IndexByID(raw.TestLabels, "id")
	require.NoError(t, err)

	joined, err := JoinLabels(test, lbl)
	require.NoError(t, err)
	require.Equal(t, 5, joined.Len())

	cleaned, err := DropUnscored(joined, labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "5"}, cleaned.Keys())

	for i := range cleaned.Len() {
		all := true
		for _, l := range labels {
			v, err := cleaned.Value(i, l)
			require.NoError(t, err)
			all = all && v == "-1"
		}
		assert.False(t, all, "row %s is unscored", cleaned.Key(i))
	}

	_, err = DropUnscored(joined, []string{"missing"})
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestDropUnscored_PartialAndFloat(t *testing.T) {
	tbl, err := IndexByID(mustTable(t, []string{"id", "a", "b"}, [][]string{
		{"1", "-1", "0"},
		{"2", "-1.0", "-1"},
		{"3", "1", "1"},
	}), "id")
	require.NoError(t, err)

	cleaned, err := DropUnscored(tbl, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, cleaned.Keys())
}

func TestSplitTrainValidation(t *testing.T) {
	tests := []struct {
		fraction  float64
		wantTrain int
		wantVal   int
	}{
		{fraction: 0.2, wantTrain: 4, wantVal: 1},
		{fraction: 0.3, wantTrain: 3, wantVal: 2},
		{fraction: 0.5, wantTrain: 2, wantVal: 3},
		{fraction: 0, wantTrain: 5, wantVal: 0},
	}

	raw := mockRaw(t)
	indexed, err := IndexByID(raw.Train, "id")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(fmt.Sprintf("fraction %g", tt.fraction), func(t *testing.T) {
			train, val, err := SplitTrainValidation(indexed, tt.fraction, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrain, train.Len())
			assert.Equal(t, tt.wantVal, val.Len())
			assert.Equal(t, indexed.Len(), train.Len()+val.Len())

			all := append(train.Keys(), val.Keys()...)
			slices.Sort(all)
			assert.Equal(t, []string{"1", "2", "3", "4", "5"}, all, "disjoint and exhaustive")

			assert.True(t, slices.IsSorted(train.Keys()), "train keeps original order")
			assert.True(t, slices.IsSorted(val.Keys()), "validation keeps original order")
		})
	}
}

func TestSplitTrainValidation_Deterministic(t *testing.T) {
	records := make([][]string, 100)
	for i := range records {
		records[i] = []string{fmt.Sprint(i), "text", "0"}
	}
	tbl, err := IndexByID(mustTable(t, []string{"id", "comment_text", "toxic"}, records), "id")
	require.NoError(t, err)

	_, val1, err := SplitTrainValidation(tbl, 0.2, 42)
	require.NoError(t, err)
	_, val2, err := SplitTrainValidation(tbl, 0.2, 42)
	require.NoError(t, err)
	_, val3, err := SplitTrainValidation(tbl, 0.2, 43)
	require.NoError(t, err)

	assert.Equal(t, val1.Keys(), val2.Keys())
	assert.NotEqual(t, val1.Keys(), val3.Keys())
	assert.Equal(t, 20, val1.Len())
}

func TestSplitTrainValidation_Errors(t *testing.T) {
	one, err := IndexByID(mustTable(t, []string{"id", "x"}, [][]string{{"1", "a"}}), "id")
	require.NoError(t, err)

	_, _, err = SplitTrainValidation(one, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidFraction)
	_, _, err = SplitTrainValidation(one, -0.5, 0)
	assert.ErrorIs(t, err, ErrInvalidFraction)
	_, _, err = SplitTrainValidation(one, 0.2, 0)
	assert.ErrorIs(t, err, ErrEmptySplit)
}

func TestNormalizeText(t *testing.T) {
	decomposed := "cafe\u0301"
	tbl, err := IndexByID(mustTable(t, []string{"id", "comment_text"}, [][]string{{"1", decomposed}}), "id")
	require.NoError(t, err)

	out, err := NormalizeText(tbl, []string{"comment_text"})
	require.NoError(t, err)
	v, err := out.Value(0, "comment_text")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", v)

	orig, err := tbl.Value(0, "comment_text")
	require.NoError(t, err)
	assert.Equal(t, decomposed, orig, "input table is unchanged")
}

func TestPreprocess(t *testing.T) {
	tables, stats, err := Preprocess(mockRaw(t), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, tables.Train.Len())
	assert.Equal(t, 1, tables.Val.Len())
	assert.Equal(t, 3, tables.Test.Len())
	assert.Equal(t, []string{"2", "4", "5"}, tables.Test.Keys())

	want := append([]string{"comment_text"}, labels...)
	for _, tbl := range []*frame.Table{tables.Train, tables.Val, tables.Test} {
		assert.Equal(t, "id", tbl.Index())
		assert.Equal(t, want, tbl.Columns())
	}

	assert.Equal(t, Stats{
		RawTrain: 5, RawTest: 5, RawTestLabels: 5,
		Unmatched: 0, Unscored: 2,
		Train: 4, Val: 1, Test: 3,
	}, stats)
}

func TestPreprocess_ValidationFraction(t *testing.T) {
	opts := defaultOptions()
	opts.ValFraction = 0.3

	tables, _, err := Preprocess(mockRaw(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, tables.Train.Len())
	assert.Equal(t, 2, tables.Val.Len())
	assert.Equal(t, 3, tables.Test.Len())
}

func TestPreprocess_DataErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, raw *acquire.RawTables)
		kind   string
	}{
		{
			name: "missing id column",
			mutate: func(t *testing.T, raw *acquire.RawTables) {
				tbl, err := raw.Train.Select(append([]string{"comment_text"}, labels...)...)
				require.NoError(t, err)
				raw.Train = tbl
			},
			kind: schema.KindMissingColumn,
		},
		{
			name: "non binary train label",
			mutate: func(t *testing.T, raw *acquire.RawTables) {
				col, err := raw.Train.Column("toxic")
				require.NoError(t, err)
				col[0] = "2"
				tbl, err := raw.Train.WithColumn("toxic", col)
				require.NoError(t, err)
				raw.Train = tbl
			},
			kind: schema.KindNonBinaryLabel,
		},
		{
			name: "every test row unscored",
			mutate: func(t *testing.T, raw *acquire.RawTables) {
				for _, l := range labels {
					tbl, err := raw.TestLabels.WithColumn(l, []string{"-1", "-1", "-1", "-1", "-1"})
					require.NoError(t, err)
					raw.TestLabels = tbl
				}
			},
			kind: schema.KindEmptyTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mockRaw(t)
			tt.mutate(t, &raw)

			_, _, err := Preprocess(raw, defaultOptions())
			require.ErrorIs(t, err, schema.ErrInvalidData)

			var vErr *schema.ValidationError
			require.ErrorAs(t, err, &vErr)
			var kinds []string
			for _, v := range vErr.Violations {
				kinds = append(kinds, v.Kind)
			}
			assert.Contains(t, kinds, tt.kind)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	tables, _, err := Preprocess(mockRaw(t), defaultOptions())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "processed")
	assert.False(t, Exists(dir))

	require.NoError(t, Save(dir, tables))
	assert.True(t, Exists(dir))
	assert.FileExists(t, filepath.Join(dir, TrainFile))
	assert.FileExists(t, filepath.Join(dir, ValFile))
	assert.FileExists(t, filepath.Join(dir, TestFile))

	loaded, err := Load(dir, "id")
	require.NoError(t, err)
	assert.True(t, tables.Train.Equal(loaded.Train))
	assert.True(t, tables.Val.Equal(loaded.Val))
	assert.True(t, tables.Test.Equal(loaded.Test))
	assert.True(t, Validate(loaded, defaultOptions()).OK())
}
