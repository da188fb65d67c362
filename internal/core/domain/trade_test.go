package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShares(t *testing.T) {
	n, err := ParseShares(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	for _, raw := range []string{"", "   ", "0", "-3", "1.5", "ten", "1e3"} {
		_, err := ParseShares(raw)
		assert.ErrorIs(t, err, ErrValidation, "input %q", raw)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	s, err := NormalizeSymbol("  nflx ")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", s)

	_, err = NormalizeSymbol("   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeSellSymbol_RejectsPlaceholder(t *testing.T) {
	_, err := NormalizeSellSymbol("Symbol")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must select symbol", ve.Reason)

	_, err = NormalizeSellSymbol("")
	assert.ErrorIs(t, err, ErrValidation)

	s, err := NormalizeSellSymbol("aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s)
}

func TestAmount_RoundsHalfAwayFromZero(t *testing.T) {
	price := decimal.RequireFromString("10.005")
	assert.Equal(t, "10.01", Amount(price, 1).StringFixed(2))

	price = decimal.RequireFromString("0.125")
	assert.Equal(t, "0.38", Amount(price, 3).StringFixed(2))

	price = decimal.RequireFromString("123.45")
	assert.True(t, Amount(price, 10).Equal(decimal.RequireFromString("1234.50")))
}

func TestTransactionKind(t *testing.T) {
	assert.Equal(t, "Purchase", Transaction{Shares: 5}.Kind())
	assert.Equal(t, "Sale", Transaction{Shares: -5}.Kind())
}

func TestTradeError_UnwrapsToKind(t *testing.T) {
	err := error(&TradeError{Kind: ErrInsufficientShares, Side: SideSell, Symbol: "X", Shares: 3, Held: 1})
	assert.ErrorIs(t, err, ErrInsufficientShares)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
}
