// Package wrds implements the WRDS (Wharton Research Data Services) provider.
// It serves the BONDRET corporate bond month panel over the WRDS web query
// API, gated behind a WRDS account (HTTP basic auth).
//
// Docs: https://wrds-www.wharton.upenn.edu/pages/get-data/wrds-bond-returns/
package wrds

import (
	"context"

	"github.com/openbondlab/bondspread/internal/infra"
	"github.com/openbondlab/bondspread/internal/provider"
)

const (
	providerName = "wrds"

	credUsername = "username"
	credPassword = "password"

	// Internal params carrying credentials from provider to fetcher.
	paramUsername = "_wrds_username"
	paramPassword = "_wrds_password"
)

// Provider implements provider.Provider for WRDS.
type Provider struct {
	provider.BaseProvider
	username string
	password string
}

// New creates a new WRDS provider and registers its fetchers.
func New() *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Wharton Research Data Services — BONDRET corporate bond returns (account required)",
			"https://wrds-www.wharton.upenn.edu",
			[]provider.Credential{
				{
					Name:        credUsername,
					Description: "WRDS account username",
					Required:    true,
					EnvVar:      "BONDSPREAD_WRDS_USERNAME",
				},
				{
					Name:        credPassword,
					Description: "WRDS account password",
					Required:    true,
					EnvVar:      "BONDSPREAD_WRDS_PASSWORD",
				},
			},
		),
	}
	p.RegisterFetcher(newBondReturnsFetcher())
	return p
}

// Init validates and stores the WRDS credentials.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	p.username = credentials[credUsername]
	p.password = credentials[credPassword]
	return nil
}

// Ping verifies the WRDS credentials against the query endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	body, _, err := infra.DoGetBasicAuth(ctx, "https://wrds-api.wharton.upenn.edu/", p.username, p.password, nil)
	if err != nil {
		return err
	}
	body.Close()
	return nil
}

// Fetcher overrides BaseProvider.Fetcher to return a wrapper that injects
// the stored credentials into query params before delegating.
func (p *Provider) Fetcher(ds provider.DatasetType) provider.Fetcher {
	inner := p.BaseProvider.Fetcher(ds)
	if inner == nil {
		return nil
	}
	return &credentialInjector{inner: inner, p: p}
}

// credentialInjector wraps a Fetcher and injects the WRDS credentials.
type credentialInjector struct {
	inner provider.Fetcher
	p     *Provider
}

func (w *credentialInjector) Dataset() provider.DatasetType { return w.inner.Dataset() }
func (w *credentialInjector) Description() string           { return w.inner.Description() }
func (w *credentialInjector) RequiredParams() []string      { return w.inner.RequiredParams() }

func (w *credentialInjector) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	enriched := make(provider.QueryParams, len(params)+2)
	for k, v := range params {
		enriched[k] = v
	}
	enriched[paramUsername] = w.p.username
	enriched[paramPassword] = w.p.password
	return w.inner.Fetch(ctx, enriched)
}
