package explore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/born-ml/toxicprep/internal/frame"
)

var labels = []string{"toxic", "insult"}

func table(t *testing.T, records [][]string) *frame.Table {
	t.Helper()
	tbl, err := frame.New([]string{"id", "comment_text", "toxic", "insult"}, records)
	require.NoError(t, err)
	tbl, err = tbl.SetIndex("id")
	require.NoError(t, err)
	return tbl
}

func sampleTables(t *testing.T) []Named {
	t.Helper()
	return []Named{
		{Name: "Train", Table: table(t, [][]string{
			{"1", "hello", "0", "0"},
			{"2", "", "1", "1"},
			{"3", "NA", "1", "0"},
			{"4", "  ", "0", "0"},
		})},
		{Name: "Validation", Table: table(t, [][]string{
			{"5", "fine", "0", "0"},
		})},
		{Name: "Test", Table: table(t, [][]string{
			{"6", "bad", "1", "1"},
			{"7", "ok", "0", "0"},
		})},
	}
}

func TestMissingValues(t *testing.T) {
	got := MissingValues(sampleTables(t)[0].Table)
	assert.Equal(t, []ColumnCount{
		{Column: "comment_text", Missing: 2},
		{Column: "toxic", Missing: 0},
		{Column: "insult", Missing: 0},
	}, got)
}

func TestIsMissing(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"NA", true},
		{"NaN", true},
		{"null", true},
		{"<NA>", true},
		{"  ", false},
		{" NA", false},
		{"na", false},
		{"0", false},
		{"hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMissing(tt.value))
		})
	}
}

func TestValueCounts(t *testing.T) {
	tbl := sampleTables(t)[0].Table

	raw, err := ValueCounts(tbl, "insult", false)
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{Value: "0", Count: 3}, {Value: "1", Count: 1}}, raw)

	norm, err := ValueCounts(tbl, "toxic", true)
	require.NoError(t, err)
	require.Len(t, norm, 2)
	assert.Equal(t, "0", norm[0].Value, "ties ordered by value")
	assert.InDelta(t, 0.5, norm[0].Fraction, 1e-12)
	assert.InDelta(t, 0.5, norm[1].Fraction, 1e-12)

	_, err = ValueCounts(tbl, "missing", true)
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestLabelStats(t *testing.T) {
	stats, err := LabelStats(sampleTables(t)[0].Table, labels)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "toxic", stats[0].Label)
	assert.Equal(t, 4, stats[0].Rows)
	assert.Equal(t, 2, stats[0].Positive)
	assert.InDelta(t, 0.5, stats[0].Mean, 1e-12)
	// Sample standard deviation of {0, 1, 1, 0}.
	assert.InDelta(t, 0.57735, stats[0].StdDev, 1e-5)

	single, err := LabelStats(sampleTables(t)[1].Table, labels)
	require.NoError(t, err)
	assert.Zero(t, single[0].StdDev)

	bad, err := sampleTables(t)[0].Table.WithColumn("toxic", []string{"0", "x", "1", "0"})
	require.NoError(t, err)
	_, err = LabelStats(bad, labels)
	assert.ErrorContains(t, err, "not numeric")
}

func TestBuildAndWriteText(t *testing.T) {
	r, err := Build(sampleTables(t), labels)
	require.NoError(t, err)
	require.Len(t, r.Tables, 3)
	assert.Equal(t, 4, r.Tables[0].Rows)
	assert.Equal(t, []string{"0", "1"}, r.values("toxic"))

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "Validation")
	assert.Contains(t, out, "MISSING VALUES")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "50.00%")

	_, err = Build(sampleTables(t), []string{"threat"})
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestWriteWorkbook(t *testing.T) {
	r, err := Build(sampleTables(t), labels)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "exploration.xlsx")
	require.NoError(t, r.WriteWorkbook(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetMissing, SheetValueCounts}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Len(t, summary, 1+3*len(labels))
	assert.Equal(t, []string{"Table", "Label", "Rows", "Positive", "Mean", "StdDev"}, summary[0])

	missing, err := f.GetRows(SheetMissing)
	require.NoError(t, err)
	assert.Equal(t, []string{"Column", "Train", "Validation", "Test", "Train %", "Validation %", "Test %"}, missing[0])
	assert.Equal(t, []string{"comment_text", "2", "0", "0", "50", "0", "0"}, missing[1])
	assert.Len(t, missing, 1+3)

	header, err := f.GetCellValue(SheetValueCounts, "A1")
	require.NoError(t, err)
	assert.Equal(t, "toxic", header)
	zeroTrain, err := f.GetCellValue(SheetValueCounts, "B2")
	require.NoError(t, err)
	assert.Equal(t, "0.5", zeroTrain)
	second, err := f.GetCellValue(SheetValueCounts, "A17")
	require.NoError(t, err)
	assert.Equal(t, "insult", second)
}
