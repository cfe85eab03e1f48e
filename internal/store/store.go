// Package store persists the pulled datasets and pipeline intermediates as
// CSV files in the data directory, so downstream commands can run offline
// against the last pull.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/openbondlab/bondspread/pkg/models"
	"github.com/openbondlab/bondspread/pkg/utils"
)

// File names inside the data directory.
const (
	TreasuryFile      = "bondret_treasury.csv"
	BondsFile         = "crsp_bond_returns.csv"
	BenchmarkFile     = "he_kelly_manela_monthly.csv"
	MergedFile        = "merged_bonds.csv"
	DecileReturnsFile = "nozawa_decile_returns.csv"
)

// Store reads and writes dataset files under a data directory.
type Store struct {
	dataDir string
}

// New creates a store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// --- Treasury observations ---

// SaveTreasury writes the Treasury panel to the data directory.
func (s *Store) SaveTreasury(obs []models.TreasuryObservation) error {
	records := make([][]string, 0, len(obs))
	for _, o := range obs {
		records = append(records, []string{
			o.CUSIP,
			utils.FormatDate(o.Date),
			formatFloat(o.Return),
			formatFloat(o.DurationMatchedYTM),
		})
	}
	return s.writeCSV(TreasuryFile,
		[]string{"cusip", "date", "tr_return", "tr_ytm_match"}, records)
}

// LoadTreasury reads the Treasury panel back.
func (s *Store) LoadTreasury() ([]models.TreasuryObservation, error) {
	records, err := s.readCSV(TreasuryFile, 4)
	if err != nil {
		return nil, err
	}
	obs := make([]models.TreasuryObservation, 0, len(records))
	for _, rec := range records {
		date, err := utils.ParseISODate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", TreasuryFile, err)
		}
		obs = append(obs, models.TreasuryObservation{
			CUSIP:              rec[0],
			Date:               date,
			Return:             parseFloat(rec[2]),
			DurationMatchedYTM: parseFloat(rec[3]),
		})
	}
	return obs, nil
}

// --- Bond observations ---

// SaveBonds writes the corporate bond panel to the data directory.
func (s *Store) SaveBonds(obs []models.BondObservation) error {
	records := make([][]string, 0, len(obs))
	for _, o := range obs {
		records = append(records, []string{
			o.CUSIP,
			utils.FormatDate(o.Date),
			formatFloat(o.PriceEOM),
			formatFloat(o.TimeToMaturity),
			formatFloat(o.AmountOutstanding),
			formatFloat(o.Yield),
			formatFloat(o.TradeWeightedYTM),
			formatFloat(o.Return),
		})
	}
	return s.writeCSV(BondsFile,
		[]string{"cusip", "date", "price_eom", "tmt", "amount_outstanding", "yield", "t_yld_pt", "ret_eom"},
		records)
}

// LoadBonds reads the corporate bond panel back.
func (s *Store) LoadBonds() ([]models.BondObservation, error) {
	records, err := s.readCSV(BondsFile, 8)
	if err != nil {
		return nil, err
	}
	obs := make([]models.BondObservation, 0, len(records))
	for _, rec := range records {
		date, err := utils.ParseISODate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", BondsFile, err)
		}
		obs = append(obs, models.BondObservation{
			CUSIP:             rec[0],
			Date:              date,
			PriceEOM:          parseFloat(rec[2]),
			TimeToMaturity:    parseFloat(rec[3]),
			AmountOutstanding: parseFloat(rec[4]),
			Yield:             parseFloat(rec[5]),
			TradeWeightedYTM:  parseFloat(rec[6]),
			Return:            parseFloat(rec[7]),
		})
	}
	return obs, nil
}

// --- Benchmark decile table ---

// SaveBenchmark writes the published decile series in long form
// (date, decile, return).
func (s *Store) SaveBenchmark(table models.DecileTable) error {
	var records [][]string
	for _, d := range table.Deciles() {
		series := table.Series[d]
		for i := range series.Returns {
			records = append(records, []string{
				utils.FormatDate(series.Dates[i]),
				strconv.Itoa(d),
				formatFloat(series.Returns[i]),
			})
		}
	}
	return s.writeCSV(BenchmarkFile, []string{"date", "decile", "return"}, records)
}

// LoadBenchmark reads the published decile series back.
func (s *Store) LoadBenchmark() (models.DecileTable, error) {
	records, err := s.readCSV(BenchmarkFile, 3)
	if err != nil {
		return models.DecileTable{}, err
	}
	series := make(map[int]models.ReturnSeries)
	for _, rec := range records {
		date, err := utils.ParseISODate(rec[0])
		if err != nil {
			return models.DecileTable{}, fmt.Errorf("%s: %w", BenchmarkFile, err)
		}
		d, err := strconv.Atoi(rec[1])
		if err != nil {
			return models.DecileTable{}, fmt.Errorf("%s: bad decile %q", BenchmarkFile, rec[1])
		}
		sr := series[d]
		sr.Decile = d
		sr.Dates = append(sr.Dates, date)
		sr.Returns = append(sr.Returns, parseFloat(rec[2]))
		series[d] = sr
	}
	return models.DecileTable{Series: series}, nil
}

// --- Merged records ---

// SaveMerged writes the merged bond/Treasury panel.
func (s *Store) SaveMerged(recs []models.MergedRecord) error {
	records := make([][]string, 0, len(recs))
	for _, m := range recs {
		records = append(records, []string{
			m.CUSIP,
			utils.FormatDate(m.Date),
			formatFloat(m.Yield),
			formatFloat(m.TreasuryYTM),
			formatFloat(m.YieldSpread),
			formatFloat(m.AmountOutstanding),
			formatFloat(m.Return),
			formatFloat(m.ForwardReturn),
			formatFloat(m.TimeToMaturity),
		})
	}
	return s.writeCSV(MergedFile,
		[]string{"cusip", "date", "yield", "treasury_ytm", "yield_spread", "amount_outstanding", "ret_eom", "ret_eom_fwd", "tmt"},
		records)
}

// LoadMerged reads the merged panel back.
func (s *Store) LoadMerged() ([]models.MergedRecord, error) {
	records, err := s.readCSV(MergedFile, 9)
	if err != nil {
		return nil, err
	}
	recs := make([]models.MergedRecord, 0, len(records))
	for _, rec := range records {
		date, err := utils.ParseISODate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", MergedFile, err)
		}
		recs = append(recs, models.MergedRecord{
			CUSIP:             rec[0],
			Date:              date,
			Yield:             parseFloat(rec[2]),
			TreasuryYTM:       parseFloat(rec[3]),
			YieldSpread:       parseFloat(rec[4]),
			AmountOutstanding: parseFloat(rec[5]),
			Return:            parseFloat(rec[6]),
			ForwardReturn:     parseFloat(rec[7]),
			TimeToMaturity:    parseFloat(rec[8]),
		})
	}
	return recs, nil
}

// --- Decile returns ---

// SaveDecileReturns writes the replication decile return panel.
func (s *Store) SaveDecileReturns(rets []models.DecileReturn) error {
	records := make([][]string, 0, len(rets))
	for _, r := range rets {
		records = append(records, []string{
			utils.FormatDate(r.Date),
			strconv.Itoa(r.Decile),
			formatFloat(r.Return),
		})
	}
	return s.writeCSV(DecileReturnsFile, []string{"date", "decile", "return"}, records)
}

// LoadDecileReturns reads the replication decile return panel back.
func (s *Store) LoadDecileReturns() ([]models.DecileReturn, error) {
	records, err := s.readCSV(DecileReturnsFile, 3)
	if err != nil {
		return nil, err
	}
	rets := make([]models.DecileReturn, 0, len(records))
	for _, rec := range records {
		date, err := utils.ParseISODate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", DecileReturnsFile, err)
		}
		d, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s: bad decile %q", DecileReturnsFile, rec[1])
		}
		rets = append(rets, models.DecileReturn{
			Date:   date,
			Decile: d,
			Return: parseFloat(rec[2]),
		})
	}
	return rets, nil
}

// --- CSV plumbing ---

func (s *Store) writeCSV(name string, header []string, records [][]string) error {
	fullPath := s.path(name)

	slog.Info("writing dataset file",
		slog.String("path", fullPath),
		slog.Int("rows", len(records)))

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) readCSV(name string, wantFields int) ([][]string, error) {
	fullPath := s.path(name)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = wantFields

	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// formatFloat renders a value for CSV, empty for Missing.
func formatFloat(v float64) string {
	if models.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseFloat reads a CSV cell, Missing when empty.
func parseFloat(s string) float64 {
	if s == "" {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing
	}
	return v
}

// Exists reports whether a dataset file is present, with its mod time.
func (s *Store) Exists(name string) (bool, time.Time) {
	info, err := os.Stat(s.path(name))
	if err != nil {
		return false, time.Time{}
	}
	return true, info.ModTime()
}
