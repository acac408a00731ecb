package explore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary     = "Summary"
	SheetMissing     = "Missing"
	SheetValueCounts = "ValueCounts"
)

// WriteText prints the report as aligned plain-text tables.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, t := range r.Tables {
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.Rows)
	}

	fmt.Fprintln(tw, "\nMISSING VALUES")
	for _, t := range r.Tables {
		for _, m := range t.Missing {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f%%\n", t.Name, m.Column, m.Missing, percent(m.Missing, t.Rows))
		}
	}

	fmt.Fprintln(tw, "\nLABEL\tTABLE\tROWS\tPOSITIVE\tMEAN\tSTDDEV")
	for _, l := range r.Labels {
		for _, t := range r.Tables {
			for _, s := range t.Stats {
				if s.Label != l {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.4f\t%.4f\n", l, t.Name, s.Rows, s.Positive, s.Mean, s.StdDev)
			}
		}
	}

	fmt.Fprintln(tw, "\nVALUE COUNTS (normalized)")
	for _, l := range r.Labels {
		for _, t := range r.Tables {
			for _, vc := range t.Counts[l] {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\n", l, t.Name, vc.Value, vc.Fraction)
			}
		}
	}

	return tw.Flush()
}

// WriteWorkbook writes the report as an .xlsx file with a summary sheet, a
// missing-value sheet charting the missing percentage per column, and a sheet
// of normalized value counts holding one clustered column chart per label.
func (r *Report) WriteWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetMissing, SheetValueCounts} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	if err := r.writeSummary(f); err != nil {
		return err
	}
	if err := r.writeMissing(f); err != nil {
		return err
	}
	if err := r.writeValueCounts(f); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (r *Report) writeSummary(f *excelize.File) error {
	row := 1
	if err := setRow(f, SheetSummary, row, "Table", "Label", "Rows", "Positive", "Mean", "StdDev"); err != nil {
		return err
	}
	for _, t := range r.Tables {
		for _, s := range t.Stats {
			row++
			if err := setRow(f, SheetSummary, row, t.Name, s.Label, s.Rows, s.Positive, s.Mean, s.StdDev); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMissing writes one row per column with the missing count per table,
// then the missing percentage per table, and charts the percentages.
func (r *Report) writeMissing(f *excelize.File) error {
	header := []any{"Column"}
	for _, t := range r.Tables {
		header = append(header, t.Name)
	}
	for _, t := range r.Tables {
		header = append(header, t.Name+" %")
	}
	if err := setRow(f, SheetMissing, 1, header...); err != nil {
		return err
	}

	var columns []string
	for _, t := range r.Tables {
		for _, m := range t.Missing {
			if !slices.Contains(columns, m.Column) {
				columns = append(columns, m.Column)
			}
		}
	}

	for i, c := range columns {
		counts := make([]any, 0, len(r.Tables))
		percents := make([]any, 0, len(r.Tables))
		for _, t := range r.Tables {
			n := missing(t, c)
			counts = append(counts, n)
			percents = append(percents, percent(n, t.Rows))
		}
		values := append(append([]any{c}, counts...), percents...)
		if err := setRow(f, SheetMissing, i+2, values...); err != nil {
			return err
		}
	}

	if len(columns) == 0 || len(r.Tables) == 0 {
		return nil
	}
	series, err := tableSeries(SheetMissing, len(r.Tables)+2, len(r.Tables), 1, 2, len(columns)+1)
	if err != nil {
		return err
	}
	anchor, err := excelize.CoordinatesToCellName(2*len(r.Tables)+3, 1)
	if err != nil {
		return err
	}
	return addChart(f, SheetMissing, anchor, "Percentage of missing values", series)
}

func missing(t TableSummary, column string) int {
	for _, m := range t.Missing {
		if m.Column == column {
			return m.Missing
		}
	}
	return 0
}

func percent(n, rows int) float64 {
	if rows == 0 {
		return 0
	}
	return 100 * float64(n) / float64(rows)
}

// writeValueCounts lays out one block per label: a header row naming the
// tables, one row per distinct value, and a chart to the right of the block.
func (r *Report) writeValueCounts(f *excelize.File) error {
	row := 1
	for _, label := range r.Labels {
		values := r.values(label)

		header := []any{label}
		for _, t := range r.Tables {
			header = append(header, t.Name)
		}
		if err := setRow(f, SheetValueCounts, row, header...); err != nil {
			return err
		}
		first := row + 1
		for i, v := range values {
			cells := []any{v}
			for _, t := range r.Tables {
				cells = append(cells, fraction(t, label, v))
			}
			if err := setRow(f, SheetValueCounts, first+i, cells...); err != nil {
				return err
			}
		}
		last := first + len(values) - 1

		if len(values) > 0 && len(r.Tables) > 0 {
			series, err := tableSeries(SheetValueCounts, 2, len(r.Tables), row, first, last)
			if err != nil {
				return err
			}
			anchor, err := excelize.CoordinatesToCellName(len(r.Tables)+3, row)
			if err != nil {
				return err
			}
			if err := addChart(f, SheetValueCounts, anchor, label+" value counts (normalized)", series); err != nil {
				return err
			}
		}

		// Leave room for the chart before the next block.
		row += max(len(values)+2, 16)
	}
	return nil
}

// tableSeries builds one chart series per table from n adjacent columns
// starting at firstCol, named by headerRow and spanning rows first..last.
func tableSeries(sheet string, firstCol, n, headerRow, first, last int) ([]excelize.ChartSeries, error) {
	series := make([]excelize.ChartSeries, n)
	for i := range n {
		col, err := excelize.ColumnNumberToName(firstCol + i)
		if err != nil {
			return nil, err
		}
		series[i] = excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$%d", sheet, col, headerRow),
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", sheet, first, last),
			Values:     fmt.Sprintf("%s!$%s$%d:$%s$%d", sheet, col, first, col, last),
		}
	}
	return series, nil
}

func addChart(f *excelize.File, sheet, anchor, title string, series []excelize.ChartSeries) error {
	chart := &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	}
	if err := f.AddChart(sheet, anchor, chart); err != nil {
		return fmt.Errorf("failed to add chart %q: %w", title, err)
	}
	return nil
}
