package store

import (
	"math"
	"testing"
	"time"

	"github.com/openbondlab/bondspread/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTreasuryRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	in := []models.TreasuryObservation{
		{CUSIP: "00077TAA2", Date: date(2007, 1, 31), Return: 0.005, DurationMatchedYTM: 0.048},
		{CUSIP: "00184AAG0", Date: date(2007, 2, 28), Return: models.Missing, DurationMatchedYTM: 0.041},
	}
	if err := s.SaveTreasury(in); err != nil {
		t.Fatalf("SaveTreasury: %v", err)
	}

	out, err := s.LoadTreasury()
	if err != nil {
		t.Fatalf("LoadTreasury: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].CUSIP != "00077TAA2" || !out[0].Date.Equal(in[0].Date) {
		t.Errorf("first = %+v", out[0])
	}
	if math.Abs(out[0].Return-0.005) > 1e-15 {
		t.Errorf("return = %v", out[0].Return)
	}
	if !models.IsMissing(out[1].Return) {
		t.Errorf("missing return not preserved: %v", out[1].Return)
	}
}

func TestBondsRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	in := []models.BondObservation{
		{
			CUSIP: "X1", Date: date(2007, 1, 31),
			PriceEOM: 101.5, TimeToMaturity: 8.2, AmountOutstanding: 250000,
			Yield: 0.055, TradeWeightedYTM: 0.056, Return: 0.012,
		},
	}
	if err := s.SaveBonds(in); err != nil {
		t.Fatalf("SaveBonds: %v", err)
	}
	out, err := s.LoadBonds()
	if err != nil {
		t.Fatalf("LoadBonds: %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestBenchmarkRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	in := models.DecileTable{Series: map[int]models.ReturnSeries{
		1: {
			Decile:  1,
			Dates:   []time.Time{date(2007, 1, 31), date(2007, 2, 28)},
			Returns: []float64{0.010, -0.002},
		},
		10: {
			Decile:  10,
			Dates:   []time.Time{date(2007, 1, 31)},
			Returns: []float64{0.019},
		},
	}}
	if err := s.SaveBenchmark(in); err != nil {
		t.Fatalf("SaveBenchmark: %v", err)
	}

	out, err := s.LoadBenchmark()
	if err != nil {
		t.Fatalf("LoadBenchmark: %v", err)
	}
	if len(out.Deciles()) != 2 {
		t.Fatalf("deciles = %v", out.Deciles())
	}
	d1 := out.Series[1]
	if d1.Len() != 2 || math.Abs(d1.Returns[1]-(-0.002)) > 1e-15 {
		t.Errorf("decile 1 = %+v", d1)
	}
	if out.Series[10].Len() != 1 {
		t.Errorf("decile 10 = %+v", out.Series[10])
	}
}

func TestMergedRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	in := []models.MergedRecord{
		{
			CUSIP: "X1", Date: date(2007, 1, 31),
			Yield: 0.055, TreasuryYTM: 0.048, YieldSpread: 0.007,
			AmountOutstanding: 250000, Return: 0.012,
			ForwardReturn: models.Missing, TimeToMaturity: 8.2,
		},
	}
	if err := s.SaveMerged(in); err != nil {
		t.Fatalf("SaveMerged: %v", err)
	}
	out, err := s.LoadMerged()
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].CUSIP != "X1" || math.Abs(out[0].YieldSpread-0.007) > 1e-15 {
		t.Errorf("merged = %+v", out[0])
	}
	if !models.IsMissing(out[0].ForwardReturn) {
		t.Errorf("missing forward return not preserved: %v", out[0].ForwardReturn)
	}
}

func TestDecileReturnsRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	in := []models.DecileReturn{
		{Date: date(2007, 1, 31), Decile: 1, Return: 0.003},
		{Date: date(2007, 1, 31), Decile: 10, Return: 0.021},
	}
	if err := s.SaveDecileReturns(in); err != nil {
		t.Fatalf("SaveDecileReturns: %v", err)
	}
	out, err := s.LoadDecileReturns()
	if err != nil {
		t.Fatalf("LoadDecileReturns: %v", err)
	}
	if len(out) != 2 || out[1].Decile != 10 {
		t.Errorf("out = %+v", out)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.LoadTreasury(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExists(t *testing.T) {
	s := New(t.TempDir())
	if ok, _ := s.Exists(TreasuryFile); ok {
		t.Error("Exists true before save")
	}
	if err := s.SaveTreasury(nil); err != nil {
		t.Fatal(err)
	}
	ok, mod := s.Exists(TreasuryFile)
	if !ok || mod.IsZero() {
		t.Errorf("Exists = %v, %v", ok, mod)
	}
}
