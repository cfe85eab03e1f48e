// Package provider defines the data-provider abstraction for the pipeline.
// Each upstream source (open bond asset pricing, WRDS, He-Kelly-Manela)
// implements Provider and registers one Fetcher per dataset it serves; a
// central registry routes dataset requests to the right provider.
package provider

import (
	"context"
	"fmt"
	"time"
)

// DatasetType identifies one of the tabular datasets the replication needs.
type DatasetType string

const (
	// DatasetTreasuryReturns is the duration-matched Treasury yield/return
	// panel keyed by corporate bond CUSIP and month.
	DatasetTreasuryReturns DatasetType = "TreasuryReturns"

	// DatasetBondReturns is the WRDS BONDRET corporate bond month panel.
	DatasetBondReturns DatasetType = "BondReturns"

	// DatasetBenchmarkFactors is the published He-Kelly-Manela decile
	// return series used as the comparison benchmark.
	DatasetBenchmarkFactors DatasetType = "BenchmarkFactors"
)

// Credential describes a required credential for a provider.
type Credential struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"`
}

// Info holds metadata about a registered provider.
type Info struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Website     string        `json:"website"`
	Credentials []Credential  `json:"credentials"`
	Datasets    []DatasetType `json:"datasets"`
}

// Provider is the interface all dataset providers implement.
type Provider interface {
	// Info returns metadata about this provider.
	Info() Info

	// Init initializes the provider with credentials. Returns an error if
	// required credentials are missing.
	Init(credentials map[string]string) error

	// Fetcher returns the fetcher for the given dataset, or nil.
	Fetcher(ds DatasetType) Fetcher

	// SupportedDatasets returns all datasets this provider can fetch.
	SupportedDatasets() []DatasetType

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
}

// QueryParams carries fetch parameters. Common keys:
//   - "start_date" : sample start (YYYY-MM-DD)
//   - "end_date"   : sample end
//   - "url"        : override the configured source URL
type QueryParams map[string]string

// Query parameter keys.
const (
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamURL       = "url"
	ParamProvider  = "provider"
)

// FetchResult wraps a fetched dataset with metadata. Data holds the parsed
// rows, typed per dataset:
//   - TreasuryReturns  → []models.TreasuryObservation
//   - BondReturns      → []models.BondObservation
//   - BenchmarkFactors → models.DecileTable
type FetchResult struct {
	Provider  string      `json:"provider"`
	Dataset   DatasetType `json:"dataset"`
	Data      any         `json:"data"`
	FetchedAt time.Time   `json:"fetched_at"`
	Cached    bool        `json:"cached"`
}

// Fetcher fetches a single dataset.
type Fetcher interface {
	// Dataset returns the dataset this fetcher handles.
	Dataset() DatasetType

	// Description returns a human-readable description.
	Description() string

	// RequiredParams returns the parameter keys this fetcher requires.
	RequiredParams() []string

	// Fetch retrieves and parses the dataset.
	Fetch(ctx context.Context, params QueryParams) (*FetchResult, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrDatasetNotSupported is returned when a provider doesn't serve a dataset.
type ErrDatasetNotSupported struct {
	Provider string
	Dataset  DatasetType
}

func (e *ErrDatasetNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not serve dataset %q", e.Provider, e.Dataset)
}

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}

// ValidateParams checks that all required parameters are present.
func ValidateParams(params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}
