package hkm

import (
	"archive/zip"
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/openbondlab/bondspread/internal/provider"
	"github.com/openbondlab/bondspread/pkg/models"
)

func factorsHeader() string {
	cols := []string{"yyyymm", "intermediary_capital_ratio"}
	for i := 11; i <= 20; i++ {
		cols = append(cols, "US_bonds_"+strconv.Itoa(i))
	}
	return strings.Join(cols, ",")
}

const row1 = "200701,0.08,0.010,0.011,0.012,0.013,0.014,0.015,0.016,0.017,0.018,0.019"
const row2 = "200702,0.07,-0.002,,0.004,0.005,0.006,0.007,0.008,0.009,0.010,0.011"

func sampleFactorsCSV() string {
	return factorsHeader() + "\n" + row1 + "\n" + row2 + "\n"
}

func buildZip(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseFactorsCSV(t *testing.T) {
	table, err := ParseFactorsCSV(strings.NewReader(sampleFactorsCSV()))
	if err != nil {
		t.Fatalf("ParseFactorsCSV: %v", err)
	}

	deciles := table.Deciles()
	if len(deciles) != models.NumDeciles {
		t.Fatalf("deciles = %v", deciles)
	}

	// US_bonds_11 maps to decile 1.
	d1 := table.Series[1]
	if d1.Len() != 2 {
		t.Fatalf("decile 1 len = %d", d1.Len())
	}
	if math.Abs(d1.Returns[0]-0.010) > 1e-12 || math.Abs(d1.Returns[1]-(-0.002)) > 1e-12 {
		t.Errorf("decile 1 returns = %v", d1.Returns)
	}
	// yyyymm 200701 becomes 2007-01-31.
	if d1.Dates[0].Year() != 2007 || d1.Dates[0].Month() != 1 || d1.Dates[0].Day() != 31 {
		t.Errorf("decile 1 first date = %v", d1.Dates[0])
	}

	// Decile 2 (US_bonds_12) has an empty cell in the second row, so only one
	// observation survives.
	d2 := table.Series[2]
	if d2.Len() != 1 {
		t.Errorf("decile 2 len = %d, want 1", d2.Len())
	}

	// US_bonds_20 maps to decile 10.
	d10 := table.Series[10]
	if math.Abs(d10.Returns[0]-0.019) > 1e-12 {
		t.Errorf("decile 10 first return = %v", d10.Returns[0])
	}
}

func TestParseFactorsCSVMissingColumns(t *testing.T) {
	_, err := ParseFactorsCSV(strings.NewReader("yyyymm,US_bonds_11\n200701,0.01\n"))
	if err == nil {
		t.Error("expected error for incomplete US_bonds columns")
	}
	_, err = ParseFactorsCSV(strings.NewReader("date,US_bonds_11\n200701,0.01\n"))
	if err == nil {
		t.Error("expected error for missing yyyymm column")
	}
}

func TestExtractMonthlyCSV(t *testing.T) {
	zipBytes := buildZip(t, monthlyCSV, sampleFactorsCSV())
	got, err := ExtractMonthlyCSV(zipBytes)
	if err != nil {
		t.Fatalf("ExtractMonthlyCSV: %v", err)
	}
	if string(got) != sampleFactorsCSV() {
		t.Error("extracted content differs")
	}
}

func TestExtractMonthlyCSVMissingMember(t *testing.T) {
	zipBytes := buildZip(t, "other.csv", "a,b\n")
	if _, err := ExtractMonthlyCSV(zipBytes); err == nil {
		t.Error("expected error when target CSV absent from archive")
	}
}

func TestExtractMonthlyCSVCorruptArchive(t *testing.T) {
	if _, err := ExtractMonthlyCSV([]byte("not a zip")); err == nil {
		t.Error("expected error for corrupt archive")
	}
}

func TestFetchDownloadsAndParses(t *testing.T) {
	zipBytes := buildZip(t, monthlyCSV, sampleFactorsCSV())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(zipBytes)
	}))
	defer srv.Close()

	f := newFactorsFetcher()
	res, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamURL: srv.URL + "/He_Kelly_Manela_Factors.zip",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	table, ok := res.Data.(models.DecileTable)
	if !ok {
		t.Fatalf("data type = %T", res.Data)
	}
	if len(table.Deciles()) != models.NumDeciles {
		t.Errorf("deciles = %v", table.Deciles())
	}
	if res.Cached {
		t.Error("first fetch marked cached")
	}

	again, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamURL: srv.URL + "/He_Kelly_Manela_Factors.zip",
	})
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !again.Cached {
		t.Error("second fetch not marked cached")
	}
}

func TestProviderRegistration(t *testing.T) {
	p := New()
	if p.Info().Name != providerName {
		t.Errorf("name = %s", p.Info().Name)
	}
	if p.Fetcher(provider.DatasetBenchmarkFactors) == nil {
		t.Error("factors fetcher not registered")
	}
}
