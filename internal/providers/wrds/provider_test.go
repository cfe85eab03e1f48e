package wrds

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openbondlab/bondspread/internal/provider"
	"github.com/openbondlab/bondspread/pkg/models"
)

const sampleCSV = `cusip,date,price_eom,tmt,amount_outstanding,yield,t_yld_pt,ret_eom
00077TAA2,2007-01-31,101.5,8.2,250000,0.055,5.60,0.012
00077TAA2,2007-02-28,100.9,8.1,250000,0.0560,5.70,-0.004
00184AAG0,2007-02-28,99.0,3.0,120000,,4.10,0.008
`

func TestParseBondCSV(t *testing.T) {
	obs, err := ParseBondCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseBondCSV: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("len = %d", len(obs))
	}

	first := obs[0]
	if first.CUSIP != "00077TAA2" || first.Date.Day() != 31 {
		t.Errorf("first = %+v", first)
	}
	// yield is already a decimal, t_yld_pt arrives in percent.
	if math.Abs(first.Yield-0.055) > 1e-12 {
		t.Errorf("yield = %v", first.Yield)
	}
	if math.Abs(first.TradeWeightedYTM-0.056) > 1e-12 {
		t.Errorf("t_yld_pt = %v, want 0.056", first.TradeWeightedYTM)
	}
	if math.Abs(first.Return-0.012) > 1e-12 {
		t.Errorf("ret_eom = %v", first.Return)
	}
	if first.AmountOutstanding != 250000 {
		t.Errorf("amount = %v", first.AmountOutstanding)
	}

	if !models.IsMissing(obs[2].Yield) {
		t.Errorf("empty yield = %v, want Missing", obs[2].Yield)
	}
}

func TestParseBondCSVCompactDates(t *testing.T) {
	csv := "cusip,date,price_eom,tmt,amount_outstanding,yield,t_yld_pt,ret_eom\n" +
		"X,20070115,100,5,1000,0.05,5.0,0.01\n"
	obs, err := ParseBondCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if obs[0].Date.Day() != 31 || obs[0].Date.Month() != 1 {
		t.Errorf("date not snapped to month end: %v", obs[0].Date)
	}
}

func TestParseBondCSVMissingColumn(t *testing.T) {
	_, err := ParseBondCSV(strings.NewReader("cusip,date,yield\nX,2007-01-31,0.05\n"))
	if err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestInitRequiresCredentials(t *testing.T) {
	p := New()
	if err := p.Init(map[string]string{credUsername: "user"}); err == nil {
		t.Error("expected error for missing password")
	}
	if err := p.Init(map[string]string{credUsername: "user", credPassword: "pw"}); err != nil {
		t.Errorf("Init: %v", err)
	}
}

func TestFetchSendsAuthAndDateRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "testuser" || pass != "testpass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("start_date") != "2007-01-01" || q.Get("end_date") != "2007-12-31" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	p := New()
	if err := p.Init(map[string]string{credUsername: "testuser", credPassword: "testpass"}); err != nil {
		t.Fatal(err)
	}

	f := p.Fetcher(provider.DatasetBondReturns)
	if f == nil {
		t.Fatal("no bond returns fetcher")
	}
	res, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamURL:       srv.URL,
		provider.ParamStartDate: "2007-01-01",
		provider.ParamEndDate:   "2007-12-31",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	obs, ok := res.Data.([]models.BondObservation)
	if !ok {
		t.Fatalf("data type = %T", res.Data)
	}
	if len(obs) != 3 {
		t.Errorf("len = %d", len(obs))
	}
	if res.Cached {
		t.Error("first fetch marked cached")
	}

	again, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamURL:       srv.URL,
		provider.ParamStartDate: "2007-01-01",
		provider.ParamEndDate:   "2007-12-31",
	})
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !again.Cached {
		t.Error("second fetch not marked cached")
	}
}

func TestFetchBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New()
	if err := p.Init(map[string]string{credUsername: "u", credPassword: "wrong"}); err != nil {
		t.Fatal(err)
	}

	f := p.Fetcher(provider.DatasetBondReturns)
	_, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamURL:       srv.URL,
		provider.ParamStartDate: "2007-01-01",
		provider.ParamEndDate:   "2007-12-31",
	})
	if err == nil || !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("expected auth failure, got %v", err)
	}
}

func TestBuildQueryURL(t *testing.T) {
	got := buildQueryURL("https://example.org/bondret", "2002-07-01", "2023-12-31")
	if !strings.Contains(got, "start_date=2002-07-01") || !strings.Contains(got, "format=csv") {
		t.Errorf("url = %s", got)
	}

	// Endpoint that already carries a query string.
	got = buildQueryURL("https://example.org/q?table=bondret", "2002-07-01", "2023-12-31")
	if !strings.Contains(got, "?table=bondret&") {
		t.Errorf("url = %s", got)
	}
}
