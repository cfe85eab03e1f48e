package models

import (
	"math"
	"time"
)

// Missing marks an absent numeric field. Upstream files encode gaps as empty
// cells or "."; loaders normalize those to NaN so downstream filters can test
// a single condition.
var Missing = math.NaN()

// IsMissing reports whether v is an absent value.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// --- Corporate bonds ---

// BondObservation is one corporate bond month from the WRDS BONDRET table.
// Yield and Return are decimals (0.05 = 5%); AmountOutstanding is face value
// in thousands. There is one observation per (CUSIP, month).
type BondObservation struct {
	CUSIP             string    `json:"cusip"`
	Date              time.Time `json:"date"` // month-end
	PriceEOM          float64   `json:"price_eom"`
	TimeToMaturity    float64   `json:"tmt"` // years
	AmountOutstanding float64   `json:"amount_outstanding"`
	Yield             float64   `json:"yield"`
	TradeWeightedYTM  float64   `json:"t_yld_pt"`
	Return            float64   `json:"ret_eom"`
}

// --- Duration-matched Treasuries ---

// TreasuryObservation is one duration-matched Treasury month from the open
// bond asset pricing dataset, keyed by the corporate bond's CUSIP.
// DurationMatchedYTM and Return are decimals.
type TreasuryObservation struct {
	CUSIP              string    `json:"cusip"`
	Date               time.Time `json:"date"` // month-end
	Return             float64   `json:"tr_return"`
	DurationMatchedYTM float64   `json:"tr_ytm_match"`
}

// --- Merged records ---

// MergedRecord is a bond observation joined with its duration-matched
// Treasury for the same (CUSIP, month), plus derived fields.
type MergedRecord struct {
	CUSIP             string    `json:"cusip"`
	Date              time.Time `json:"date"`
	Yield             float64   `json:"yield"`
	TreasuryYTM       float64   `json:"treasury_ytm"`
	YieldSpread       float64   `json:"yield_spread"` // Yield - TreasuryYTM
	AmountOutstanding float64   `json:"amount_outstanding"`
	Return            float64   `json:"ret_eom"`
	ForwardReturn     float64   `json:"ret_eom_fwd"` // next month's Return, Missing on the last month
	TimeToMaturity    float64   `json:"tmt"`
}
