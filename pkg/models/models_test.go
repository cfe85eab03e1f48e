package models

import (
	"testing"
	"time"
)

func TestMissing(t *testing.T) {
	if !IsMissing(Missing) {
		t.Error("IsMissing(Missing) = false")
	}
	if IsMissing(0) {
		t.Error("IsMissing(0) = true")
	}
	if IsMissing(-0.05) {
		t.Error("IsMissing(-0.05) = true")
	}
}

func TestDecileTableDeciles(t *testing.T) {
	table := DecileTable{Series: map[int]ReturnSeries{
		7:  {Decile: 7},
		1:  {Decile: 1},
		10: {Decile: 10},
	}}
	got := table.Deciles()
	want := []int{1, 7, 10}
	if len(got) != len(want) {
		t.Fatalf("Deciles() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Deciles() = %v, want %v", got, want)
		}
	}
}

func TestReturnSeriesLen(t *testing.T) {
	s := ReturnSeries{
		Dates:   []time.Time{time.Now()},
		Returns: []float64{0.01},
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}
