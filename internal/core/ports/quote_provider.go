package ports

import (
	"context"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// QuoteProvider resolves a ticker to its current name and price. Every
// failure, including transport and decoding errors, is reported as
// domain.ErrQuoteNotFound.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (domain.Quote, error)
}
