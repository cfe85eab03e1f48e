package hkm

import (
	"archive/zip"
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
// BenchmarkFactors — published decile portfolio returns.
// URL: https://asafmanela.github.io/papers/hkm/intermediarycapitalrisk/He_Kelly_Manela_Factors.zip
// ---------------------------------------------------------------------------

type factorsFetcher struct {
	provider.BaseFetcher
}

func newFactorsFetcher() *factorsFetcher {
	return &factorsFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.DatasetBenchmarkFactors,
			"He-Kelly-Manela US corporate bond decile returns (US_bonds_11..20)",
			[]string{provider.ParamURL},
		),
	}
}

func (f *factorsFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	cacheKey := provider.CacheKey(provider.DatasetBenchmarkFactors, params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		res := *cached.(*provider.FetchResult)
		res.Cached = true
		return &res, nil
	}

	body, _, err := infra.DoGet(ctx, params[provider.ParamURL], nil)
	if err != nil {
		return nil, fmt.Errorf("benchmark factors: %w", err)
	}
	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, fmt.Errorf("benchmark factors: %w", err)
	}

	csvBytes, err := ExtractMonthlyCSV(raw)
	if err != nil {
		return nil, fmt.Errorf("benchmark factors: %w", err)
	}
	table, err := ParseFactorsCSV(bytes.NewReader(csvBytes))
	if err != nil {
		return nil, fmt.Errorf("benchmark factors: %w", err)
	}

	result := &provider.FetchResult{Data: table, FetchedAt: time.Now()}
	f.CacheSet(cacheKey, result)
	return result, nil
}

// ExtractMonthlyCSV opens the downloaded zip in memory and returns the bytes
// of the monthly test-assets CSV.
func ExtractMonthlyCSV(zipBytes []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != monthlyCSV {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", monthlyCSV)
}

// ParseFactorsCSV parses the monthly file into a DecileTable. The yyyymm
// column becomes a month-end date; columns US_bonds_11..US_bonds_20 map to
// deciles 1..10. Rows where all ten bond columns are empty are dropped, and
// within a decile's series the months with no published value are skipped so
// dates and returns stay aligned.
func ParseFactorsCSV(r io.Reader) (models.DecileTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return models.DecileTable{}, fmt.Errorf("read header: %w", err)
	}

	dateCol := -1
	bondCols := make(map[int]int) // column index -> decile 1..10
	for i, h := range header {
		name := strings.TrimSpace(h)
		if strings.EqualFold(name, "yyyymm") {
			dateCol = i
			continue
		}
		if suffix, ok := strings.CutPrefix(name, "US_bonds_"); ok {
			n, err := strconv.Atoi(suffix)
			if err == nil && n >= 11 && n <= 20 {
				bondCols[i] = n - 10
			}
		}
	}
	if dateCol < 0 {
		return models.DecileTable{}, fmt.Errorf("missing yyyymm column")
	}
	if len(bondCols) != models.NumDeciles {
		return models.DecileTable{}, fmt.Errorf("found %d US_bonds_11..20 columns, want %d", len(bondCols), models.NumDeciles)
	}

	series := make(map[int]models.ReturnSeries, models.NumDeciles)
	for d := 1; d <= models.NumDeciles; d++ {
		series[d] = models.ReturnSeries{Decile: d}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.DecileTable{}, fmt.Errorf("read row: %w", err)
		}
		if dateCol >= len(rec) {
			continue
		}
		date, err := utils.ParseYYYYMM(strings.TrimSpace(rec[dateCol]))
		if err != nil {
			continue
		}

		for col, d := range bondCols {
			if col >= len(rec) {
				continue
			}
			v := parseReturn(rec[col])
			if models.IsMissing(v) {
				continue
			}
			s := series[d]
			s.Dates = append(s.Dates, date)
			s.Returns = append(s.Returns, v)
			series[d] = s
		}
	}

	return models.DecileTable{Series: series}, nil
}

// parseReturn parses a decimal return cell, Missing when empty.
func parseReturn(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || strings.EqualFold(s, "nan") {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing
	}
	return v
}
