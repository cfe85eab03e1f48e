// Package report writes the replication outputs: LaTeX table fragments,
// CSV panels, and PNG charts, all into the output directory. The .tex files
// are booktabs tabular fragments meant to be \input into a paper.
package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/openbondlab/bondspread/internal/metrics"
	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// Output file names.
const (
	DecileReturnsCSV      = "decile_returns.csv"
	DecileReturnsTeX      = "decile_returns.tex"
	BenchmarkSummaryTeX   = "benchmark_summary.tex"
	ReplicationSummaryTeX = "replication_summary.tex"
	AnalysisTeX           = "analysis.tex"
	AnalysisCSV           = "analysis.csv"
	YieldSpreadPNG        = "yield_spread.png"
	CumulativeReturnsPNG  = "cumulative_returns.png"
)

// sampleRows is how many months the .tex sample table shows.
const sampleRows = 10

// Writer renders all replication outputs into one directory.
type Writer struct {
	outputDir string
}

// NewWriter creates a report writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

func (w *Writer) path(name string) string {
	return filepath.Join(w.outputDir, name)
}

func (w *Writer) ensureDir() error {
	return os.MkdirAll(w.outputDir, 0o755)
}

// WriteDecileReturns writes the full replication panel as CSV and a
// first-months sample as a LaTeX table (one row per month, one column per
// decile).
func (w *Writer) WriteDecileReturns(returns []models.DecileReturn) error {
	if err := w.ensureDir(); err != nil {
		return err
	}

	// Full panel, long form.
	records := make([][]string, 0, len(returns))
	for _, r := range returns {
		records = append(records, []string{
			utils.FormatDate(r.Date),
			strconv.Itoa(r.Decile),
			formatCell(r.Return),
		})
	}
	if err := w.writeCSV(DecileReturnsCSV, []string{"date", "decile", "return"}, records); err != nil {
		return err
	}

	// Sample table, wide form.
	table := pivotWide(returns)
	if len(table.Rows) > sampleRows {
		table.Rows = table.Rows[:sampleRows]
	}
	return w.writeTeX(DecileReturnsTeX, table)
}

// pivotWide turns the long decile return panel into one row per month with
// a column per decile.
func pivotWide(returns []models.DecileReturn) Table {
	byMonth := make(map[string][]string)
	var order []string
	for _, r := range returns {
		m := utils.MonthKey(r.Date)
		if _, ok := byMonth[m]; !ok {
			row := make([]string, models.NumDeciles+1)
			row[0] = utils.FormatDate(r.Date)
			byMonth[m] = row
			order = append(order, m)
		}
		if r.Decile >= 1 && r.Decile <= models.NumDeciles {
			byMonth[m][r.Decile] = formatCell(r.Return)
		}
	}

	columns := make([]string, 0, models.NumDeciles+1)
	columns = append(columns, "date")
	for d := 1; d <= models.NumDeciles; d++ {
		columns = append(columns, strconv.Itoa(d))
	}

	t := Table{Columns: columns}
	for _, m := range order {
		t.Rows = append(t.Rows, byMonth[m])
	}
	return t
}

// WriteSummaries writes the per-decile summary statistics of the replication
// and benchmark series as LaTeX tables.
func (w *Writer) WriteSummaries(replication, benchmark []metrics.SeriesSummary) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	if err := w.writeTeX(ReplicationSummaryTeX, summaryTable(replication)); err != nil {
		return err
	}
	return w.writeTeX(BenchmarkSummaryTeX, summaryTable(benchmark))
}

func summaryTable(summaries []metrics.SeriesSummary) Table {
	t := Table{
		Columns: []string{"decile", "n", "mean", "std dev", "cumulative", "start", "end"},
	}
	for _, s := range summaries {
		start, end := "", ""
		if !s.Start.IsZero() {
			start, end = utils.FormatDate(s.Start), utils.FormatDate(s.End)
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(s.Decile),
			strconv.Itoa(s.Observations),
			formatCell(s.Mean),
			formatCell(s.StdDev),
			formatCell(s.Cumulative),
			start,
			end,
		})
	}
	return t
}

// WriteAnalysis writes the comparison metrics as both a LaTeX table and CSV.
func (w *Writer) WriteAnalysis(comparisons []metrics.DecileComparison) error {
	if err := w.ensureDir(); err != nil {
		return err
	}

	columns := []string{"decile", "n", "correlation", "r squared", "slope", "intercept", "mae", "rmse", "tracking error"}
	t := Table{Columns: columns}
	records := make([][]string, 0, len(comparisons))
	for _, c := range comparisons {
		row := []string{
			strconv.Itoa(c.Decile),
			strconv.Itoa(c.Observations),
			formatCell(c.Correlation),
			formatCell(c.RSquared),
			formatCell(c.Slope),
			formatCell(c.Intercept),
			formatCell(c.MAE),
			formatCell(c.RMSE),
			formatCell(c.TrackingError),
		}
		t.Rows = append(t.Rows, row)
		records = append(records, row)
	}

	if err := w.writeTeX(AnalysisTeX, t); err != nil {
		return err
	}
	csvHeader := []string{"decile", "n", "correlation", "r_squared", "slope", "intercept", "mae", "rmse", "tracking_error"}
	return w.writeCSV(AnalysisCSV, csvHeader, records)
}

// WriteCharts renders both PNG figures.
func (w *Writer) WriteCharts(merged []models.MergedRecord, replication models.DecileTable) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	if err := YieldSpreadChart(merged, w.path(YieldSpreadPNG)); err != nil {
		return err
	}
	return CumulativeReturnsChart(replication, w.path(CumulativeReturnsPNG))
}

// --- file plumbing ---

func (w *Writer) writeTeX(name string, t Table) error {
	fullPath := w.path(name)
	slog.Info("writing table", slog.String("path", fullPath), slog.Int("rows", len(t.Rows)))

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()
	return RenderLaTeX(file, t)
}

func (w *Writer) writeCSV(name string, header []string, records [][]string) error {
	fullPath := w.path(name)
	slog.Info("writing csv", slog.String("path", fullPath), slog.Int("rows", len(records)))

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
