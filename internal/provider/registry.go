package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is a thread-safe registry of dataset providers. It maps provider
// names to Provider instances and records which provider serves each dataset.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defaults  map[DatasetType]string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		defaults:  make(map[DatasetType]string),
	}
}

// Register adds a provider. Credentials should be set via Init() first.
// The first provider registered for a dataset becomes its default.
func (r *Registry) Register(p Provider) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[info.Name] = p
	for _, ds := range p.SupportedDatasets() {
		if _, ok := r.defaults[ds]; !ok {
			r.defaults[ds] = info.Name
		}
	}
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// List returns info about all registered providers, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// DefaultProvider returns the default provider name for a dataset.
func (r *Registry) DefaultProvider(ds DatasetType) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.defaults[ds]
	return name, ok
}

// Fetch retrieves a dataset using the provider named in params, or the
// dataset's default provider.
func (r *Registry) Fetch(ctx context.Context, ds DatasetType, params QueryParams) (*FetchResult, error) {
	providerName := params[ParamProvider]

	r.mu.RLock()
	if providerName == "" {
		providerName = r.defaults[ds]
	}
	p, ok := r.providers[providerName]
	r.mu.RUnlock()

	if !ok || providerName == "" {
		return nil, &ErrProviderNotFound{Name: providerName}
	}

	fetcher := p.Fetcher(ds)
	if fetcher == nil {
		return nil, &ErrDatasetNotSupported{Provider: providerName, Dataset: ds}
	}

	if err := ValidateParams(params, fetcher.RequiredParams()); err != nil {
		return nil, err
	}

	result, err := fetcher.Fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("provider %q fetch %s: %w", providerName, ds, err)
	}

	result.Provider = providerName
	result.Dataset = ds
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now()
	}
	return result, nil
}

// global is the default registry shared by the CLI commands.
var global = NewRegistry()

// Global returns the default global provider registry.
func Global() *Registry {
	return global
}

// RegisterProvider adds a provider to the global registry.
func RegisterProvider(p Provider) error {
	return global.Register(p)
}
