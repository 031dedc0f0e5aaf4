package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/williamokano/bucket_backuper/pkg/location"
)

// StoreConstructor creates the provider layer of a client
type StoreConstructor func(ctx context.Context, cfg Config) (ObjectStore, error)

// providers maps each known provider to its constructor. Only the providers
// the location router recognizes can be registered.
var providers = map[location.Provider]StoreConstructor{}

// RegisterProvider registers the store constructor of a known provider
func RegisterProvider(provider location.Provider, constructor StoreConstructor) {
	if !known(provider) {
		panic(fmt.Sprintf("storage: cannot register unknown provider %q", string(provider)))
	}
	providers[provider] = constructor
}

func known(provider location.Provider) bool {
	return provider == location.ProviderS3 || provider == location.ProviderGCS
}

// Factory creates storage clients from configuration
type Factory struct {
	logger zerolog.Logger
}

// NewFactory creates a new factory instance
func NewFactory(logger zerolog.Logger) *Factory {
	return &Factory{logger: logger}
}

// Create instantiates a client for provider. Credentials are validated by the
// provider constructor before any network call.
func (f *Factory) Create(ctx context.Context, provider location.Provider, cfg Config) (Client, error) {
	constructor, ok := providers[provider]
	if !known(provider) || !ok {
		return nil, &UnknownProviderError{Provider: provider}
	}

	store, err := constructor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider.Name(), err)
	}

	return NewObjectClient(store, f.logger), nil
}

// CreateForURI picks the provider from a location string
func (f *Factory) CreateForURI(ctx context.Context, uri string, cfg Config) (Client, error) {
	loc, err := location.Parse(uri)
	if err != nil {
		return nil, err
	}
	if loc.IsLocal() {
		return nil, fmt.Errorf("%w: %s", ErrLocalLocation, uri)
	}

	return f.Create(ctx, loc.Provider(), cfg)
}
