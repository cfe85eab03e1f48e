// Package metrics compares the replicated decile return series against the
// published benchmark and produces per-decile summary statistics.
package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Comparison metrics
// ════════════════════════════════════════════════════════════════════

// DecileComparison holds the agreement metrics for one decile, computed over
// the months where both series have a value.
type DecileComparison struct {
	Decile        int     `json:"decile"`
	Observations  int     `json:"observations"`
	Correlation   float64 `json:"correlation"`
	RSquared      float64 `json:"r_squared"`
	Slope         float64 `json:"slope"`
	Intercept     float64 `json:"intercept"`
	MAE           float64 `json:"mae"`
	RMSE          float64 `json:"rmse"`
	TrackingError float64 `json:"tracking_error"`
}

// Compare aligns replication and benchmark on their common months and
// computes, per decile: Pearson correlation, R² = corr², the OLS slope and
// intercept of benchmark on replication, the MAE and RMSE of the regression
// residuals, and the tracking error (population standard deviation of
// benchmark minus replication). Deciles without overlapping months get NaN
// metrics, never an error.
func Compare(replication, benchmark models.DecileTable) []DecileComparison {
	comparisons := make([]DecileComparison, 0, models.NumDeciles)
	for d := 1; d <= models.NumDeciles; d++ {
		x, y := alignSeries(replication.Series[d], benchmark.Series[d])
		comparisons = append(comparisons, compareOne(d, x, y))
	}
	return comparisons
}

func compareOne(decile int, x, y []float64) DecileComparison {
	c := DecileComparison{
		Decile:        decile,
		Observations:  len(x),
		Correlation:   models.Missing,
		RSquared:      models.Missing,
		Slope:         models.Missing,
		Intercept:     models.Missing,
		MAE:           models.Missing,
		RMSE:          models.Missing,
		TrackingError: models.Missing,
	}
	if len(x) == 0 {
		return c
	}

	c.Correlation = stat.Correlation(x, y, nil)
	c.RSquared = c.Correlation * c.Correlation

	// Benchmark regressed on replication.
	c.Intercept, c.Slope = stat.LinearRegression(x, y, nil, false)

	var sumAbs, sumSq float64
	diff := make([]float64, len(x))
	for i := range x {
		resid := y[i] - (c.Slope*x[i] + c.Intercept)
		sumAbs += math.Abs(resid)
		sumSq += resid * resid
		diff[i] = y[i] - x[i]
	}
	n := float64(len(x))
	c.MAE = sumAbs / n
	c.RMSE = math.Sqrt(sumSq / n)
	c.TrackingError = stat.PopStdDev(diff, nil)

	return c
}

// alignSeries pairs up the months present in both series, returning the
// replication values as x and benchmark values as y.
func alignSeries(replication, benchmark models.ReturnSeries) (x, y []float64) {
	byMonth := make(map[string]float64, benchmark.Len())
	for i := range benchmark.Returns {
		byMonth[utils.MonthKey(benchmark.Dates[i])] = benchmark.Returns[i]
	}
	for i := range replication.Returns {
		b, ok := byMonth[utils.MonthKey(replication.Dates[i])]
		if !ok {
			continue
		}
		if models.IsMissing(replication.Returns[i]) || models.IsMissing(b) {
			continue
		}
		x = append(x, replication.Returns[i])
		y = append(y, b)
	}
	return x, y
}

// ════════════════════════════════════════════════════════════════════
// Summary statistics
// ════════════════════════════════════════════════════════════════════

// SeriesSummary describes one decile's return series on its own.
type SeriesSummary struct {
	Decile       int       `json:"decile"`
	Observations int       `json:"observations"`
	Mean         float64   `json:"mean"`
	StdDev       float64   `json:"std_dev"`
	Cumulative   float64   `json:"cumulative"` // Π(1+r) − 1
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// Summarize computes per-decile summary statistics for a return table.
// StdDev is the sample standard deviation; Cumulative is the compounded
// return over the whole series.
func Summarize(table models.DecileTable) []SeriesSummary {
	summaries := make([]SeriesSummary, 0, len(table.Series))
	for _, d := range table.Deciles() {
		s := table.Series[d]
		summary := SeriesSummary{
			Decile:       d,
			Observations: s.Len(),
			Mean:         models.Missing,
			StdDev:       models.Missing,
			Cumulative:   models.Missing,
		}
		if s.Len() > 0 {
			summary.Mean = stat.Mean(s.Returns, nil)
			summary.StdDev = stat.StdDev(s.Returns, nil)
			summary.Cumulative = CumulativeReturn(s.Returns)
			summary.Start = s.Dates[0]
			summary.End = s.Dates[s.Len()-1]
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// CumulativeReturn compounds a return series: Π(1+r) − 1.
func CumulativeReturn(returns []float64) float64 {
	prod := 1.0
	for _, r := range returns {
		prod *= 1 + r
	}
	return prod - 1
}

// CumulativePath returns the running compounded return after each
// observation, for charting growth over time.
func CumulativePath(returns []float64) []float64 {
	path := make([]float64, len(returns))
	prod := 1.0
	for i, r := range returns {
		prod *= 1 + r
		path[i] = prod - 1
	}
	return path
}
