package models

import "time"

// NumDeciles is the number of yield-spread portfolios.
const NumDeciles = 10

// --- Decile portfolios ---

// DecileAssignment records which decile a bond fell into for one month.
// Deciles run 1 (narrowest spread) to 10 (widest).
type DecileAssignment struct {
	Date   time.Time `json:"date"`
	CUSIP  string    `json:"cusip"`
	Decile int       `json:"decile"`
}

// DecileReturn is the amount-outstanding-weighted forward return of one
// decile portfolio for one formation month.
type DecileReturn struct {
	Date   time.Time `json:"date"`
	Decile int       `json:"decile"`
	Return float64   `json:"return"`
}

// --- Return series ---

// ReturnSeries is one decile's monthly return series, dates ascending.
// Used for both the replication and the published benchmark.
type ReturnSeries struct {
	Decile  int         `json:"decile"`
	Dates   []time.Time `json:"dates"`
	Returns []float64   `json:"returns"`
}

// Len returns the number of observations.
func (s ReturnSeries) Len() int { return len(s.Returns) }

// DecileTable holds one ReturnSeries per decile, indexed 1..NumDeciles.
type DecileTable struct {
	Series map[int]ReturnSeries `json:"series"`
}

// Deciles returns the decile numbers present, ascending.
func (t DecileTable) Deciles() []int {
	out := make([]int, 0, len(t.Series))
	for d := 1; d <= NumDeciles; d++ {
		if _, ok := t.Series[d]; ok {
			out = append(out, d)
		}
	}
	return out
}
