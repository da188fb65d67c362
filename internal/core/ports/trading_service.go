package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// TradeResult describes an executed buy or sell.
type TradeResult struct {
	Side   domain.TradeSide `json:"side"`
	Symbol string           `json:"symbol"`
	Name   string           `json:"name"`
	Shares int64            `json:"shares"`
	Price  decimal.Decimal  `json:"price"`
	// Amount is the cost of a buy or the proceeds of a sale.
	Amount decimal.Decimal `json:"amount"`
	Cash   decimal.Decimal `json:"cash"`
}

// ValuedPosition is one portfolio row. When the quote lookup failed Error is
// set, Price is nil and Total is zero.
type ValuedPosition struct {
	Symbol string           `json:"symbol"`
	Name   string           `json:"name,omitempty"`
	Shares int64            `json:"shares"`
	Price  *decimal.Decimal `json:"price"`
	Total  decimal.Decimal  `json:"total"`
	Error  string           `json:"error,omitempty"`
}

// Valuation is a user's portfolio at current prices. TotalValue covers cash
// plus every row that could be priced; Incomplete reports that some row
// could not.
type Valuation struct {
	Positions  []ValuedPosition `json:"positions"`
	Cash       decimal.Decimal  `json:"cash"`
	TotalValue decimal.Decimal  `json:"total_value"`
	Incomplete bool             `json:"incomplete"`
}

// TradingService executes trades and reads portfolio state.
type TradingService interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	Buy(ctx context.Context, id domain.Identity, symbol string, shares int64) (*TradeResult, error)
	Sell(ctx context.Context, id domain.Identity, symbol string, shares int64) (*TradeResult, error)
	Valuation(ctx context.Context, id domain.Identity) (*Valuation, error)
	History(ctx context.Context, id domain.Identity) ([]domain.Transaction, error)
	Holdings(ctx context.Context, id domain.Identity) ([]domain.Position, error)
}
