package handler

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// usd renders an amount the way the pages show money, e.g. "$1,873.30".
func usd(d decimal.Decimal) string {
	cents := d.Shift(domain.CurrencyPlaces).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

func boughtMessage(shares int64, symbol string) string {
	return fmt.Sprintf("You bought %d shares of %s!", shares, symbol)
}

func soldMessage(shares int64, symbol string) string {
	return fmt.Sprintf("You just sold %d shares of %s!", shares, symbol)
}

// TradeErrorMessage turns a rejected trade into the text shown to the user.
func TradeErrorMessage(te *domain.TradeError) string {
	switch te.Kind {
	case domain.ErrInsufficientFunds:
		return fmt.Sprintf("you do not have enough cash to buy %d shares of %s", te.Shares, te.Symbol)
	case domain.ErrInsufficientShares:
		return fmt.Sprintf("you are attempting to sell %d shares of %s but own only %d", te.Shares, te.Symbol, te.Held)
	case domain.ErrNoSuchPosition:
		return fmt.Sprintf("you do not own any shares of %s", te.Symbol)
	}
	return te.Error()
}
