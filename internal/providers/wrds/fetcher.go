package wrds

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openbondlab/bondspread/internal/infra"
	"github.com/openbondlab/bondspread/internal/provider"
	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// ---------------------------------------------------------------------------
// BondReturns — WRDSAPPS.BONDRET monthly corporate bond panel.
// One row per (cusip, month): price_eom, tmt, amount_outstanding, yield,
// t_yld_pt, ret_eom. Served as CSV by the WRDS data-query endpoint.
// ---------------------------------------------------------------------------

type bondReturnsFetcher struct {
	provider.BaseFetcher
}

func newBondReturnsFetcher() *bondReturnsFetcher {
	return &bondReturnsFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.DatasetBondReturns,
			"WRDS BONDRET monthly corporate bond returns",
			[]string{provider.ParamURL, provider.ParamStartDate, provider.ParamEndDate},
		),
	}
}

func (f *bondReturnsFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	cacheKey := provider.CacheKey(provider.DatasetBondReturns, params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		res := *cached.(*provider.FetchResult)
		res.Cached = true
		return &res, nil
	}

	queryURL := buildQueryURL(params[provider.ParamURL],
		params[provider.ParamStartDate], params[provider.ParamEndDate])

	body, _, err := infra.DoGetBasicAuth(ctx, queryURL,
		params[paramUsername], params[paramPassword], csvHeaders)
	if err != nil {
		return nil, fmt.Errorf("bond returns: %w", err)
	}
	defer body.Close()

	obs, err := ParseBondCSV(body)
	if err != nil {
		return nil, fmt.Errorf("bond returns: %w", err)
	}

	result := &provider.FetchResult{Data: obs, FetchedAt: time.Now()}
	f.CacheSet(cacheKey, result)
	return result, nil
}

var csvHeaders = map[string]string{
	"Accept": "text/csv, */*",
}

// buildQueryURL appends the date-range filter to the configured endpoint.
func buildQueryURL(base, start, end string) string {
	v := url.Values{}
	v.Set("start_date", start)
	v.Set("end_date", end)
	v.Set("format", "csv")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + v.Encode()
}

// ParseBondCSV parses a BONDRET extract. Expected columns (any order, extra
// columns ignored): cusip, date, price_eom, tmt, amount_outstanding, yield,
// t_yld_pt, ret_eom. Only t_yld_pt arrives in percent and is scaled by 1/100;
// yield and ret_eom are already decimals. Empty cells become Missing; dates
// are snapped to month end.
func ParseBondCSV(r io.Reader) ([]models.BondObservation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"cusip", "date", "yield", "t_yld_pt", "ret_eom", "amount_outstanding"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q in bondret file", name)
		}
	}

	var obs []models.BondObservation
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		cusip := strings.TrimSpace(field(rec, cols["cusip"]))
		if cusip == "" {
			continue
		}
		date, err := parseBondDate(strings.TrimSpace(field(rec, cols["date"])))
		if err != nil {
			continue // unparsable date row, drop it
		}

		obs = append(obs, models.BondObservation{
			CUSIP:             cusip,
			Date:              date,
			PriceEOM:          parseFloat(field(rec, cols["price_eom"])),
			TimeToMaturity:    parseFloat(field(rec, cols["tmt"])),
			AmountOutstanding: parseFloat(field(rec, cols["amount_outstanding"])),
			Yield:             parseFloat(field(rec, cols["yield"])),
			TradeWeightedYTM:  parseFloat(field(rec, cols["t_yld_pt"])) / 100,
			Return:            parseFloat(field(rec, cols["ret_eom"])),
		})
	}
	return obs, nil
}

// parseBondDate accepts both ISO dates and compact yyyymmdd, snapping to
// month end either way.
func parseBondDate(s string) (time.Time, error) {
	if strings.Contains(s, "-") {
		t, err := utils.ParseISODate(s)
		if err != nil {
			return time.Time{}, err
		}
		return utils.MonthEnd(t), nil
	}
	return utils.ParseYYYYMMDD(s)
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// parseFloat parses a numeric cell, Missing when empty or non-numeric.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing
	}
	return v
}
