package provider

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/openbondlab/bondspread/internal/infra"
)

// BaseFetcher provides common functionality for fetcher implementations.
// Embed it in concrete fetchers to get caching and rate limiting.
type BaseFetcher struct {
	dataset     DatasetType
	description string
	required    []string
	cache       *infra.Cache
	limiter     *rate.Limiter
}

// NewBaseFetcher creates a base fetcher. Dataset downloads are large and
// change at most monthly, so the in-memory cache TTL is long and the rate
// limit conservative.
func NewBaseFetcher(ds DatasetType, desc string, required []string) BaseFetcher {
	return BaseFetcher{
		dataset:     ds,
		description: desc,
		required:    required,
		cache:       infra.NewCache(time.Hour),
		limiter:     infra.NewRateLimiter(4, time.Minute),
	}
}

func (b *BaseFetcher) Dataset() DatasetType     { return b.dataset }
func (b *BaseFetcher) Description() string      { return b.description }
func (b *BaseFetcher) RequiredParams() []string { return b.required }

// CacheGet retrieves a value from the fetcher's cache.
func (b *BaseFetcher) CacheGet(key string) (any, bool) {
	return b.cache.Get(key)
}

// CacheSet stores a value in the fetcher's cache.
func (b *BaseFetcher) CacheSet(key string, value any) {
	b.cache.Set(key, value)
}

// RateLimit waits until a request slot is available.
func (b *BaseFetcher) RateLimit(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// CacheKey builds a deterministic cache key from dataset and parameters.
// Routing and internal underscore-prefixed params (injected credentials) are
// excluded.
func CacheKey(ds DatasetType, params QueryParams) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamProvider || strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(ds))
	for _, k := range keys {
		sb.WriteString(":")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}
	return sb.String()
}

// BaseProvider provides common functionality for provider implementations.
type BaseProvider struct {
	info        Info
	fetchers    map[DatasetType]Fetcher
	credentials map[string]string
}

// NewBaseProvider creates a base provider.
func NewBaseProvider(name, description, website string, creds []Credential) BaseProvider {
	return BaseProvider{
		info: Info{
			Name:        name,
			Description: description,
			Website:     website,
			Credentials: creds,
		},
		fetchers:    make(map[DatasetType]Fetcher),
		credentials: make(map[string]string),
	}
}

func (bp *BaseProvider) Info() Info { return bp.info }

func (bp *BaseProvider) Init(credentials map[string]string) error {
	for _, cred := range bp.info.Credentials {
		if cred.Required {
			val, ok := credentials[cred.Name]
			if !ok || val == "" {
				return &ErrInvalidCredentials{
					Provider: bp.info.Name,
					Detail:   "missing required credential: " + cred.Name,
				}
			}
		}
	}
	bp.credentials = credentials
	return nil
}

func (bp *BaseProvider) Fetcher(ds DatasetType) Fetcher {
	return bp.fetchers[ds]
}

func (bp *BaseProvider) SupportedDatasets() []DatasetType {
	datasets := make([]DatasetType, 0, len(bp.fetchers))
	for ds := range bp.fetchers {
		datasets = append(datasets, ds)
	}
	return datasets
}

func (bp *BaseProvider) Ping(ctx context.Context) error {
	return nil // Override in concrete providers.
}

// RegisterFetcher adds a fetcher to this provider.
func (bp *BaseProvider) RegisterFetcher(f Fetcher) {
	bp.fetchers[f.Dataset()] = f
	bp.info.Datasets = bp.SupportedDatasets()
}

// Credential returns a stored credential value.
func (bp *BaseProvider) Credential(name string) string {
	return bp.credentials[name]
}
