package report

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/openbondlab/bondspread/internal/metrics"
	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// PNG charts — gonum/plot
// ════════════════════════════════════════════════════════════════════

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// CumulativeReturnsChart plots the compounded growth of each decile series
// over time and saves it as a PNG.
func CumulativeReturnsChart(table models.DecileTable, outPath string) error {
	p := plot.New()
	p.Title.Text = "Cumulative Decile Portfolio Returns"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Cumulative return"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true

	var args []interface{}
	for _, d := range table.Deciles() {
		series := table.Series[d]
		if series.Len() == 0 {
			continue
		}
		cum := metrics.CumulativePath(series.Returns)
		pts := make(plotter.XYs, len(cum))
		for i := range cum {
			pts[i].X = float64(series.Dates[i].Unix())
			pts[i].Y = cum[i]
		}
		args = append(args, fmt.Sprintf("decile %d", d), pts)
	}
	if err := plotutil.AddLines(p, args...); err != nil {
		return fmt.Errorf("cumulative returns chart: %w", err)
	}

	if err := p.Save(chartWidth, chartHeight, outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}
	return nil
}

// YieldSpreadChart plots the monthly cross-sectional average corporate bond
// yield against the average duration-matched Treasury yield and saves it as
// a PNG. The gap between the two lines is the average yield spread.
func YieldSpreadChart(records []models.MergedRecord, outPath string) error {
	type acc struct {
		date     time.Time
		yieldSum float64
		trSum    float64
		n        int
	}
	byMonth := make(map[string]*acc)
	for _, r := range records {
		if models.IsMissing(r.Yield) || models.IsMissing(r.TreasuryYTM) {
			continue
		}
		m := utils.MonthKey(r.Date)
		a, ok := byMonth[m]
		if !ok {
			a = &acc{date: r.Date}
			byMonth[m] = a
		}
		a.yieldSum += r.Yield
		a.trSum += r.TreasuryYTM
		a.n++
	}

	months := make([]*acc, 0, len(byMonth))
	for _, a := range byMonth {
		months = append(months, a)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].date.Before(months[j].date) })

	yieldPts := make(plotter.XYs, len(months))
	trPts := make(plotter.XYs, len(months))
	for i, a := range months {
		x := float64(a.date.Unix())
		yieldPts[i] = plotter.XY{X: x, Y: a.yieldSum / float64(a.n)}
		trPts[i] = plotter.XY{X: x, Y: a.trSum / float64(a.n)}
	}

	p := plot.New()
	p.Title.Text = "Average Bond Yield vs. Duration-Matched Treasury Yield"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Yield"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := plotutil.AddLines(p,
		"corporate yield", yieldPts,
		"treasury ytm", trPts,
	); err != nil {
		return fmt.Errorf("yield spread chart: %w", err)
	}

	if err := p.Save(chartWidth, chartHeight, outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}
	return nil
}
