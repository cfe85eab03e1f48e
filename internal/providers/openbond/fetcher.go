package openbond

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/openbondlab/bondspread/internal/infra"
	"github.com/openbondlab/bondspread/internal/provider"
	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// ---------------------------------------------------------------------------
// TreasuryReturns — duration-matched Treasury returns and yields per CUSIP.
// URL: https://openbondassetpricing.com/wp-content/uploads/2024/06/bondret_treasury.csv
// ---------------------------------------------------------------------------

type treasuryFetcher struct {
	provider.BaseFetcher
}

func newTreasuryFetcher() *treasuryFetcher {
	return &treasuryFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.DatasetTreasuryReturns,
			"Duration-matched Treasury returns and yields, keyed by corporate bond CUSIP",
			[]string{provider.ParamURL},
		),
	}
}

func (f *treasuryFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	cacheKey := provider.CacheKey(provider.DatasetTreasuryReturns, params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		res := *cached.(*provider.FetchResult)
		res.Cached = true
		return &res, nil
	}

	raw, err := downloadTreasuryCSV(ctx, params[provider.ParamURL])
	if err != nil {
		return nil, fmt.Errorf("treasury returns: %w", err)
	}

	obs, err := ParseTreasuryCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("treasury returns: %w", err)
	}
	obs = filterByRange(obs, params[provider.ParamStartDate], params[provider.ParamEndDate])

	result := &provider.FetchResult{Data: obs, FetchedAt: time.Now()}
	f.CacheSet(cacheKey, result)
	return result, nil
}

// downloadTreasuryCSV fetches the dataset URL. When the URL serves an HTML
// page (the downloads page) instead of the file, the CSV link is discovered
// from the page and followed.
func downloadTreasuryCSV(ctx context.Context, u string) ([]byte, error) {
	body, _, err := infra.DoGet(ctx, u, csvHeaders)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, err
	}

	if !looksLikeHTML(raw) {
		return raw, nil
	}

	link, err := discoverCSVLink(u, string(raw))
	if err != nil {
		return nil, err
	}
	body, _, err = infra.DoGet(ctx, link, csvHeaders)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func looksLikeHTML(raw []byte) bool {
	head := bytes.TrimSpace(raw)
	if len(head) > 64 {
		head = head[:64]
	}
	lower := strings.ToLower(string(head))
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// ParseTreasuryCSV parses the bondret_treasury file. Expected columns (any
// order, extra columns ignored): DATE (yyyymmdd), CUSIP, tr_return,
// tr_ytm_match. Values arrive in percent and are scaled to decimals; empty
// cells become Missing. Dates are snapped to month end.
func ParseTreasuryCSV(r io.Reader) ([]models.TreasuryObservation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, name := range []string{"date", "cusip", "tr_return", "tr_ytm_match"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q in treasury file", name)
		}
	}

	var obs []models.TreasuryObservation
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
		date, err := utils.ParseYYYYMMDD(strings.TrimSpace(field(rec, cols["date"])))
		if err != nil {
			continue // unparsable date row, drop it
		}

		obs = append(obs, models.TreasuryObservation{
			CUSIP:              cusip,
			Date:               date,
			Return:             parsePercent(field(rec, cols["tr_return"])),
			DurationMatchedYTM: parsePercent(field(rec, cols["tr_ytm_match"])),
		})
	}
	return obs, nil
}

// columnIndex maps lowercased header names to positions.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// parsePercent parses a percent-valued cell to a decimal, Missing when empty
// or non-numeric.
func parsePercent(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing
	}
	return v / 100
}

// filterByRange keeps observations inside [start, end] when bounds are given
// as ISO dates. Zero-value bounds are open.
func filterByRange(obs []models.TreasuryObservation, start, end string) []models.TreasuryObservation {
	startT, endT := parseBound(start), parseBound(end)
	if startT.IsZero() && endT.IsZero() {
		return obs
	}

	out := obs[:0]
	for _, o := range obs {
		if !startT.IsZero() && o.Date.Before(startT) {
			continue
		}
		if !endT.IsZero() && o.Date.After(utils.MonthEnd(endT)) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func parseBound(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := utils.ParseISODate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
