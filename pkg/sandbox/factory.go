package sandbox

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/byteai/builder/pkg/logger"
)

// Factory builds provider handles from configuration.
type Factory struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithHTTPClient sets the client used for vendor APIs.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the logger handed to providers and handles.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

func NewFactory(cfg Config, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Minute},
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With(logger.Component("sandbox"))
	return f
}

// DefaultProvider is the provider Create picks for an empty name.
func (f *Factory) DefaultProvider() string {
	if f.cfg.Provider != "" {
		return f.cfg.Provider
	}
	return string(DefaultKind)
}

// CreateOption overrides the factory configuration for a single Create call.
type CreateOption func(*Config)

// WithE2BConfig replaces the E2B settings for one call.
func WithE2BConfig(c E2BConfig) CreateOption {
	return func(cfg *Config) { cfg.E2B = c }
}

// WithVercelConfig replaces the Vercel settings for one call.
func WithVercelConfig(c VercelConfig) CreateOption {
	return func(cfg *Config) { cfg.Vercel = c }
}

// Create returns a handle for the named provider, or for the default one
// when name is empty. Overrides are validated like the base configuration;
// missing credentials yield a *ConfigError.
func (f *Factory) Create(name string, opts ...CreateOption) (*Handle, error) {
	if name == "" {
		name = f.DefaultProvider()
	}
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	cfg := f.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	p, err := f.provider(cfg, kind)
	if err != nil {
		return nil, err
	}
	return NewHandle(p, f.log), nil
}

func (f *Factory) provider(cfg Config, kind Kind) (Provider, error) {
	if err := cfg.check(kind); err != nil {
		return nil, err
	}
	switch kind {
	case KindE2B:
		return NewE2BProvider(cfg.E2B, f.client, cfg.VitePort, f.log), nil
	case KindVercel:
		p, err := NewVercelProvider(cfg.Vercel, f.client, cfg.VitePort, f.log)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, unknownProvider(string(kind))
}

// IsProviderAvailable reports whether name's credentials are configured.
func (f *Factory) IsProviderAvailable(name string) bool {
	kind, err := ParseKind(name)
	if err != nil {
		return false
	}
	return f.cfg.check(kind) == nil
}
