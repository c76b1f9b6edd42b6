package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrAPIKeyRequired    = errors.New("API key is required")
	ErrInvalidInput      = errors.New("invalid generation input")
	ErrGenerationFailed  = errors.New("image generation failed")
)

// Provider is one image-to-image backend. The API key travels with each
// request so a single provider can serve several credentials.
type Provider interface {
	Name() models.ProviderType
	Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error)
	SupportsModel(model string) bool
	ListModels() []string
}

type Config struct {
	BaseURL    string
	TimeoutSec int
	Verbose    bool
	Logger     *slog.Logger
}

// LoggerFor returns the configured logger or the default one.
func LoggerFor(cfg *Config) *slog.Logger {
	if cfg == nil || cfg.Logger == nil {
		return slog.Default()
	}
	return cfg.Logger
}

type Factory struct {
	registry  *models.ModelRegistry
	configs   map[models.ProviderType]*Config
	providers map[models.ProviderType]Provider
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{
		registry:  registry,
		configs:   make(map[models.ProviderType]*Config),
		providers: make(map[models.ProviderType]Provider),
	}
}

func (f *Factory) Configure(providerType models.ProviderType, cfg *Config) {
	f.configs[providerType] = cfg
}

func (f *Factory) Register(provider Provider) {
	f.providers[provider.Name()] = provider
}

func (f *Factory) Get(providerType models.ProviderType) (Provider, error) {
	provider, ok := f.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}
	return provider, nil
}

func (f *Factory) GetForModel(model string) (Provider, error) {
	cap, ok := f.registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}

	provider, ok := f.providers[cap.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (required by model %s)", ErrProviderNotFound, cap.Provider, model)
	}

	return provider, nil
}

func (f *Factory) GetConfig(providerType models.ProviderType) (*Config, bool) {
	cfg, ok := f.configs[providerType]
	return cfg, ok
}

func (f *Factory) ListProviders() []models.ProviderType {
	types := make([]models.ProviderType, 0, len(f.providers))
	for t := range f.providers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
