package advisor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/foliolens/foliolens/internal/advisor/driver"
	"github.com/foliolens/foliolens/internal/advisor/driver/gemini"
	"github.com/foliolens/foliolens/internal/advisor/driver/openai"
)

// Registry builds and caches driver instances for configured providers.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
}

// ResolvedProvider is the outcome of routing a role to a concrete driver.
type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderConfig
	Driver     driver.Driver
	Model      string
}

// NewRegistry returns a registry over the given provider configuration.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Resolve routes a role to an enabled provider and returns its driver.
func (r *Registry) Resolve(role string) (*ResolvedProvider, error) {
	providerID, providerCfg, err := r.resolveProvider(role)
	if err != nil {
		return nil, err
	}

	drv, err := r.driverFor(providerID, providerCfg)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(providerCfg.Model)
	if model == "" {
		return nil, fmt.Errorf("provider %q has no model configured", providerID)
	}

	return &ResolvedProvider{
		ProviderID: providerID,
		Provider:   providerCfg,
		Driver:     drv,
		Model:      model,
	}, nil
}

func (r *Registry) resolveProvider(role string) (string, ProviderConfig, error) {
	if r == nil {
		return "", ProviderConfig{}, fmt.Errorf("advisor registry not configured")
	}

	role = strings.TrimSpace(role)
	if role != "" {
		if providerID := strings.TrimSpace(r.cfg.Routing[role]); providerID != "" {
			providerCfg, ok := r.cfg.Providers[providerID]
			if !ok {
				return "", ProviderConfig{}, fmt.Errorf("unknown provider %q for role %q", providerID, role)
			}
			if !providerCfg.Enabled {
				return "", ProviderConfig{}, fmt.Errorf("provider %q is disabled", providerID)
			}
			return providerID, providerCfg, nil
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		providerCfg, ok := r.cfg.Providers[id]
		if !ok {
			return "", ProviderConfig{}, fmt.Errorf("default provider %q not configured", id)
		}
		if !providerCfg.Enabled {
			return "", ProviderConfig{}, fmt.Errorf("default provider %q is disabled", id)
		}
		return id, providerCfg, nil
	}

	var onlyID string
	var onlyCfg ProviderConfig
	for providerID, providerCfg := range r.cfg.Providers {
		if !providerCfg.Enabled {
			continue
		}
		if onlyID != "" {
			return "", ProviderConfig{}, fmt.Errorf("no provider routing configured")
		}
		onlyID = providerID
		onlyCfg = providerCfg
	}
	if onlyID == "" {
		return "", ProviderConfig{}, fmt.Errorf("no enabled providers configured")
	}
	return onlyID, onlyCfg, nil
}

func (r *Registry) driverFor(providerID string, cfg ProviderConfig) (driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drivers == nil {
		r.drivers = make(map[string]driver.Driver)
	}
	if drv, ok := r.drivers[providerID]; ok {
		return drv, nil
	}

	kind := strings.TrimSpace(cfg.Driver)
	if kind == "" {
		kind = providerID
	}

	var drv driver.Driver
	switch kind {
	case "gemini":
		drv = gemini.NewClient(cfg.BaseURL, cfg.APIKey)
	case "openai":
		drv = openai.NewClient(cfg.BaseURL, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported driver %q for provider %q", kind, providerID)
	}

	r.drivers[providerID] = drv
	return drv, nil
}
