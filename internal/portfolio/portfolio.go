// Package portfolio implements the yield-spread decile construction: merging
// the corporate bond and Treasury panels, ranking bonds into deciles by
// spread each month, and aggregating value-weighted forward returns.
package portfolio

import (
	"log/slog"
	"sort"

	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// CleanStats counts rows removed while building the merged panel.
type CleanStats struct {
	Unmatched      int // bond months with no Treasury counterpart
	MissingSpread  int // matched rows where either yield is absent
	NegativeAmount int // rows with amount_outstanding < 0
	Kept           int
}

// Merge joins bond and Treasury observations on (CUSIP, month) and computes
// the yield spread and per-CUSIP forward return. Rows that cannot produce a
// spread, and rows with negative amount outstanding, are dropped; the counts
// are logged, not fatal. Output is ordered by month, then by bond input
// order within a month.
func Merge(bonds []models.BondObservation, treasuries []models.TreasuryObservation) ([]models.MergedRecord, CleanStats) {
	type key struct {
		cusip string
		month string
	}

	treasuryByKey := make(map[key]models.TreasuryObservation, len(treasuries))
	for _, t := range treasuries {
		treasuryByKey[key{t.CUSIP, utils.MonthKey(t.Date)}] = t
	}
	forward := forwardReturns(bonds)

	var stats CleanStats
	records := make([]models.MergedRecord, 0, len(bonds))
	for i, b := range bonds {
		tr, ok := treasuryByKey[key{b.CUSIP, utils.MonthKey(b.Date)}]
		if !ok {
			stats.Unmatched++
			continue
		}
		if models.IsMissing(b.Yield) || models.IsMissing(tr.DurationMatchedYTM) {
			stats.MissingSpread++
			continue
		}
		if !models.IsMissing(b.AmountOutstanding) && b.AmountOutstanding < 0 {
			stats.NegativeAmount++
			continue
		}

		records = append(records, models.MergedRecord{
			CUSIP:             b.CUSIP,
			Date:              b.Date,
			Yield:             b.Yield,
			TreasuryYTM:       tr.DurationMatchedYTM,
			YieldSpread:       b.Yield - tr.DurationMatchedYTM,
			AmountOutstanding: b.AmountOutstanding,
			Return:            b.Return,
			ForwardReturn:     forward[i],
			TimeToMaturity:    b.TimeToMaturity,
		})
	}
	stats.Kept = len(records)

	// Month-ascending, input order preserved within a month.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	slog.Info("merged bond and treasury panels",
		slog.Int("bonds", len(bonds)),
		slog.Int("treasuries", len(treasuries)),
		slog.Int("kept", stats.Kept),
		slog.Int("unmatched", stats.Unmatched),
		slog.Int("missing_spread", stats.MissingSpread),
		slog.Int("negative_amount", stats.NegativeAmount))

	return records, stats
}

// forwardReturns maps each bond observation (by input index) to the same
// CUSIP's return in the immediately following month, Missing when the next
// month is not observed.
func forwardReturns(bonds []models.BondObservation) map[int]float64 {
	type key struct {
		cusip string
		month string
	}
	returnByKey := make(map[key]float64, len(bonds))
	for _, b := range bonds {
		returnByKey[key{b.CUSIP, utils.MonthKey(b.Date)}] = b.Return
	}

	forward := make(map[int]float64, len(bonds))
	for i, b := range bonds {
		next := utils.NextMonthEnd(b.Date)
		if r, ok := returnByKey[key{b.CUSIP, utils.MonthKey(next)}]; ok {
			forward[i] = r
		} else {
			forward[i] = models.Missing
		}
	}
	return forward
}

// AssignDeciles ranks the records of each month by yield spread ascending
// and assigns quantile bins spanning the whole 1..10 range: the narrowest
// spread always lands in decile 1 and the widest in decile 10, with bucket
// sizes differing by at most one. Ties keep their relative input order, so
// assignment is deterministic.
func AssignDeciles(records []models.MergedRecord) []models.DecileAssignment {
	byMonth := groupByMonth(records)

	assignments := make([]models.DecileAssignment, 0, len(records))
	for _, month := range sortedMonths(byMonth) {
		idx := byMonth[month]

		order := make([]int, len(idx))
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return records[order[a]].YieldSpread < records[order[b]].YieldSpread
		})

		n := len(order)
		for rank, i := range order {
			rec := records[i]
			assignments = append(assignments, models.DecileAssignment{
				Date:   rec.Date,
				CUSIP:  rec.CUSIP,
				Decile: decileOf(rank, n),
			})
		}
	}
	return assignments
}

// decileOf bins the sorted rank (0-based) of n records the way quantile
// cutting does: the record at rank i sits at the i/(n-1) quantile of the
// month's spreads, so it falls in bin ceil(10*i/(n-1)). Under-full months
// still stretch across deciles 1..10 instead of piling into the low ones.
func decileOf(rank, n int) int {
	if n <= 1 || rank == 0 {
		return 1
	}
	return (models.NumDeciles*rank + n - 2) / (n - 1)
}

// DecileReturns computes the amount-outstanding-weighted forward return of
// each (month, decile) portfolio. Members without a forward return or
// without a weight are excluded from both numerator and denominator. The
// result is stamped at the month the return is realized (formation month +
// 1), which is the convention of the published series; formation months with
// no realizable members produce no entry, so the final sample month drops
// out naturally.
func DecileReturns(records []models.MergedRecord, assignments []models.DecileAssignment) []models.DecileReturn {
	type key struct {
		month string
		cusip string
	}
	decileByKey := make(map[key]int, len(assignments))
	for _, a := range assignments {
		decileByKey[key{utils.MonthKey(a.Date), a.CUSIP}] = a.Decile
	}

	type bucket struct {
		ret       models.DecileReturn
		numerator float64
		weight    float64
	}
	type groupKey struct {
		month  string
		decile int
	}
	groups := make(map[groupKey]*bucket)

	for _, r := range records {
		d, ok := decileByKey[key{utils.MonthKey(r.Date), r.CUSIP}]
		if !ok {
			continue
		}
		if models.IsMissing(r.ForwardReturn) || models.IsMissing(r.AmountOutstanding) {
			continue
		}
		gk := groupKey{utils.MonthKey(r.Date), d}
		g, ok := groups[gk]
		if !ok {
			g = &bucket{ret: models.DecileReturn{
				Date:   utils.NextMonthEnd(r.Date),
				Decile: d,
			}}
			groups[gk] = g
		}
		g.numerator += r.AmountOutstanding * r.ForwardReturn
		g.weight += r.AmountOutstanding
	}

	var returns []models.DecileReturn
	for _, g := range groups {
		if g.weight == 0 {
			continue
		}
		dr := g.ret
		dr.Return = g.numerator / g.weight
		returns = append(returns, dr)
	}

	sort.Slice(returns, func(i, j int) bool {
		if !returns[i].Date.Equal(returns[j].Date) {
			return returns[i].Date.Before(returns[j].Date)
		}
		return returns[i].Decile < returns[j].Decile
	})
	return returns
}

// BuildDecileReturns runs assignment and aggregation in one step.
func BuildDecileReturns(records []models.MergedRecord) []models.DecileReturn {
	return DecileReturns(records, AssignDeciles(records))
}

// AsTable pivots a flat decile return panel into per-decile series.
func AsTable(returns []models.DecileReturn) models.DecileTable {
	series := make(map[int]models.ReturnSeries)
	for _, r := range returns {
		s := series[r.Decile]
		s.Decile = r.Decile
		s.Dates = append(s.Dates, r.Date)
		s.Returns = append(s.Returns, r.Return)
		series[r.Decile] = s
	}
	return models.DecileTable{Series: series}
}

func groupByMonth(records []models.MergedRecord) map[string][]int {
	byMonth := make(map[string][]int)
	for i, r := range records {
		m := utils.MonthKey(r.Date)
		byMonth[m] = append(byMonth[m], i)
	}
	return byMonth
}

func sortedMonths(byMonth map[string][]int) []string {
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}
