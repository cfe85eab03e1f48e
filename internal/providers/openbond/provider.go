// Package openbond implements the Open Source Bond Asset Pricing provider.
// It serves the duration-matched Treasury return panel published at
// openbondassetpricing.com as a plain CSV download. No credentials required.
package openbond

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openbondlab/bondspread/internal/infra"
	"github.com/openbondlab/bondspread/internal/provider"
)

const (
	providerName = "openbond"

	baseSite = "https://openbondassetpricing.com"
)

var csvHeaders = map[string]string{
	"Accept":          "text/csv, text/html, */*",
	"Accept-Language": "en-US,en;q=0.9",
}

// Provider is the Open Source Bond Asset Pricing data provider.
type Provider struct {
	provider.BaseProvider
}

// New creates the provider and registers its fetchers.
func New() *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Open Source Bond Asset Pricing — duration-matched Treasury panel (free, no API key)",
			baseSite,
			nil, // no credentials required
		),
	}
	p.RegisterFetcher(newTreasuryFetcher())
	return p
}

// Ping verifies the site is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	body, _, err := infra.DoGet(ctx, baseSite, csvHeaders)
	if err != nil {
		return err
	}
	body.Close()
	return nil
}

// discoverCSVLink scrapes an HTML downloads page for the first anchor whose
// href points at the treasury returns CSV. The site occasionally moves the
// file between /wp-content/uploads/ paths, so the downloads page is the
// stable entry point.
func discoverCSVLink(pageURL string, html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.Contains(href, "bondret_treasury") && strings.HasSuffix(href, ".csv") {
			found = href
			return false
		}
		return true
	})
	if found == "" {
		return "", &ErrNoDatasetLink{Page: pageURL}
	}

	// Resolve relative links against the page URL.
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(found)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// ErrNoDatasetLink is returned when the downloads page has no CSV link.
type ErrNoDatasetLink struct {
	Page string
}

func (e *ErrNoDatasetLink) Error() string {
	return "no treasury CSV link found on " + e.Page
}
