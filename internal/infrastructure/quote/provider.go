// Package quote contains the market-data adapters behind ports.QuoteProvider.
package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/99minutos/trading-simulator/internal/api/metrics"
	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const (
	ProviderIEX    = "iex"
	ProviderAlpaca = "alpaca"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Alpaca   AlpacaConfig
}

// New builds the configured provider wrapped with lookup metrics.
func New(cfg Config) (ports.QuoteProvider, error) {
	switch cfg.Provider {
	case ProviderIEX, "":
		return WithMetrics(ProviderIEX, NewIEX(cfg.BaseURL, cfg.APIKey, cfg.Timeout)), nil
	case ProviderAlpaca:
		return WithMetrics(ProviderAlpaca, NewAlpaca(cfg.Alpaca)), nil
	}
	return nil, fmt.Errorf("unknown quote provider %q", cfg.Provider)
}

type instrumented struct {
	name string
	next ports.QuoteProvider
}

// WithMetrics records lookup counts and latency for next.
func WithMetrics(name string, next ports.QuoteProvider) ports.QuoteProvider {
	return &instrumented{name: name, next: next}
}

func (p *instrumented) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	start := time.Now()
	q, err := p.next.Lookup(ctx, symbol)
	metrics.QuoteLookupDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "not_found"
	}
	metrics.QuoteLookupsTotal.WithLabelValues(result).Inc()
	return q, err
}
