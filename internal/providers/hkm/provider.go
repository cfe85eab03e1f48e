// Package hkm implements the He-Kelly-Manela benchmark provider. The
// published factor and test-asset returns ship as a zip archive; the monthly
// CSV inside carries the corporate bond decile portfolios as columns
// US_bonds_11 through US_bonds_20. No credentials required.
package hkm

import (
	"context"

	"github.com/openbondlab/bondspread/internal/infra"
	"github.com/openbondlab/bondspread/internal/provider"
)

const (
	providerName = "hkm"

	baseSite = "https://asafmanela.github.io"

	// monthlyCSV is the archive member holding the monthly test assets.
	monthlyCSV = "He_Kelly_Manela_Factors_And_Test_Assets_monthly.csv"
)

// Provider is the He-Kelly-Manela published factors provider.
type Provider struct {
	provider.BaseProvider
}

// New creates the provider and registers its fetchers.
func New() *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"He-Kelly-Manela published factor and test-asset returns (free, no API key)",
			baseSite+"/papers/hkm/intermediarycapitalrisk",
			nil, // no credentials required
		),
	}
	p.RegisterFetcher(newFactorsFetcher())
	return p
}

// Ping verifies the site is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	body, _, err := infra.DoGet(ctx, baseSite, nil)
	if err != nil {
		return err
	}
	body.Close()
	return nil
}
