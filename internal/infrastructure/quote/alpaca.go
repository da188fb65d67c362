package quote

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// AlpacaConfig carries Alpaca credentials. Empty URLs select the SDK defaults.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string
	BaseURL   string
}

// Alpaca prices symbols from the latest trade and names them from the asset
// endpoint.
type Alpaca struct {
	data    *marketdata.Client
	trading *alpaca.Client
}

func NewAlpaca(cfg AlpacaConfig) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	return &Alpaca{
		data: marketdata.NewClient(opts),
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
	}
}

// Lookup resolves symbol. The SDK calls take no context, so ctx is only
// checked before the first request.
func (p *Alpaca) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, notFound(symbol, err)
	}

	trade, err := p.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return domain.Quote{}, notFound(symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return domain.Quote{}, notFound(symbol, fmt.Errorf("no trade"))
	}

	q := domain.Quote{Name: symbol, Symbol: symbol, Price: decimal.NewFromFloat(trade.Price)}
	// A missing asset name is cosmetic; the price is what matters.
	if asset, err := p.trading.GetAsset(symbol); err == nil && asset != nil {
		if asset.Name != "" {
			q.Name = asset.Name
		}
		if asset.Symbol != "" {
			q.Symbol = asset.Symbol
		}
	}
	return q, nil
}
