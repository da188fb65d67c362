package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

func newTradingSvc(store *memStore, quotes *stubQuotes, rec *stubRecorder) *TradingService {
	if rec == nil {
		return NewTradingService(store, quotes, nil, zerolog.Nop())
	}
	return NewTradingService(store, quotes, rec, zerolog.Nop())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---------------------------------------------------------------------------
// Buy
// ---------------------------------------------------------------------------

func TestTradingService_Buy_NewPosition(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "10000.00")
	rec := &stubRecorder{}
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"NFLX": "123.45"}}, rec)

	res, err := svc.Buy(context.Background(), alice, " nflx ", 10)
	if err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	if !res.Amount.Equal(dec("1234.50")) {
		t.Fatalf("expected cost 1234.50, got %s", res.Amount)
	}
	if !store.cash(alice.UserID).Equal(dec("8765.50")) {
		t.Fatalf("expected cash 8765.50, got %s", store.cash(alice.UserID))
	}
	if n, ok := store.shares(alice.UserID, "NFLX"); !ok || n != 10 {
		t.Fatalf("expected 10 NFLX shares, got %d (exists=%v)", n, ok)
	}

	txs := store.transactions()
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Shares != 10 || !txs[0].Total.Equal(dec("-1234.50")) || !txs[0].Price.Equal(dec("123.45")) {
		t.Fatalf("unexpected transaction: %+v", txs[0])
	}
	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != domain.ActivityBuy {
		t.Fatalf("expected buy activity, got %v", kinds)
	}
}

func TestTradingService_Buy_IncrementsExistingPosition(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "1000.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "10.00"}}, &stubRecorder{})

	for i := 0; i < 2; i++ {
		if _, err := svc.Buy(context.Background(), alice, "X", 3); err != nil {
			t.Fatalf("Buy #%d returned error: %v", i, err)
		}
	}

	if n, _ := store.shares(alice.UserID, "X"); n != 6 {
		t.Fatalf("expected 6 shares, got %d", n)
	}
	if !store.cash(alice.UserID).Equal(dec("940.00")) {
		t.Fatalf("expected cash 940.00, got %s", store.cash(alice.UserID))
	}
	if len(store.transactions()) != 2 {
		t.Fatalf("expected 2 transactions")
	}
}

func TestTradingService_Buy_ExactBalanceIsAffordable(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "100.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "25.00"}}, nil)

	if _, err := svc.Buy(context.Background(), alice, "X", 4); err != nil {
		t.Fatalf("expected purchase of exact balance to succeed, got: %v", err)
	}
	if !store.cash(alice.UserID).IsZero() {
		t.Fatalf("expected zero cash, got %s", store.cash(alice.UserID))
	}
}

func TestTradingService_Buy_InsufficientFundsLeavesStateUnchanged(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "100.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "25.01"}}, &stubRecorder{})

	_, err := svc.Buy(context.Background(), alice, "X", 4)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
	}

	var te *domain.TradeError
	if !errors.As(err, &te) || te.Symbol != "X" || te.Shares != 4 || te.Side != domain.SideBuy {
		t.Fatalf("expected typed trade error, got: %#v", err)
	}
	if !store.cash(alice.UserID).Equal(dec("100.00")) {
		t.Fatalf("cash changed: %s", store.cash(alice.UserID))
	}
	if _, ok := store.shares(alice.UserID, "X"); ok {
		t.Fatalf("position must not exist")
	}
	if len(store.transactions()) != 0 {
		t.Fatalf("no transaction expected")
	}
}

func TestTradingService_Buy_UnknownSymbol(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "100.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{}}, nil)

	_, err := svc.Buy(context.Background(), alice, "NOPE", 1)
	if !errors.Is(err, domain.ErrSymbolNotRecognized) {
		t.Fatalf("expected ErrSymbolNotRecognized, got: %v", err)
	}
}

func TestTradingService_Buy_InvalidInput(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "100.00")
	quotes := &stubQuotes{prices: map[string]string{"X": "1.00"}}
	svc := newTradingSvc(store, quotes, nil)

	if _, err := svc.Buy(context.Background(), alice, "   ", 1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for blank symbol, got: %v", err)
	}
	if _, err := svc.Buy(context.Background(), alice, "X", 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero shares, got: %v", err)
	}
	if quotes.calls != 0 {
		t.Fatalf("quote provider must not be called for invalid input")
	}
}

func TestTradingService_Buy_StoreFailureRollsBack(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "100.00")
	store.failTx = errStoreDown
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "1.00"}}, &stubRecorder{})

	_, err := svc.Buy(context.Background(), alice, "X", 5)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got: %v", err)
	}
	if !store.cash(alice.UserID).Equal(dec("100.00")) {
		t.Fatalf("cash debited despite rollback: %s", store.cash(alice.UserID))
	}
	if _, ok := store.shares(alice.UserID, "X"); ok {
		t.Fatalf("position created despite rollback")
	}
}

// ---------------------------------------------------------------------------
// Sell
// ---------------------------------------------------------------------------

func TestTradingService_Sell_Partial(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "1000.00")
	quotes := &stubQuotes{prices: map[string]string{"X": "10.00"}}
	svc := newTradingSvc(store, quotes, &stubRecorder{})

	if _, err := svc.Buy(context.Background(), alice, "X", 10); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	quotes.prices["X"] = "12.50"

	res, err := svc.Sell(context.Background(), alice, "X", 4)
	if err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}
	if !res.Amount.Equal(dec("50.00")) {
		t.Fatalf("expected proceeds 50.00, got %s", res.Amount)
	}
	if n, _ := store.shares(alice.UserID, "X"); n != 6 {
		t.Fatalf("expected 6 shares left, got %d", n)
	}
	if !store.cash(alice.UserID).Equal(dec("950.00")) {
		t.Fatalf("expected cash 950.00, got %s", store.cash(alice.UserID))
	}

	txs := store.transactions()
	last := txs[len(txs)-1]
	if last.Shares != -4 || !last.Total.Equal(dec("50.00")) || !last.Price.Equal(dec("12.50")) {
		t.Fatalf("unexpected sale transaction: %+v", last)
	}
}

func TestTradingService_Sell_InsufficientSharesLeavesStateUnchanged(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "1000.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "10.00"}}, nil)
	if _, err := svc.Buy(context.Background(), alice, "X", 2); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	_, err := svc.Sell(context.Background(), alice, "X", 3)
	if !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got: %v", err)
	}
	var te *domain.TradeError
	if !errors.As(err, &te) || te.Held != 2 {
		t.Fatalf("expected held=2 in trade error, got: %#v", err)
	}
	if n, _ := store.shares(alice.UserID, "X"); n != 2 {
		t.Fatalf("position changed: %d", n)
	}
	if !store.cash(alice.UserID).Equal(dec("980.00")) {
		t.Fatalf("cash changed: %s", store.cash(alice.UserID))
	}
	if len(store.transactions()) != 1 {
		t.Fatalf("unexpected transaction appended")
	}
}

func TestTradingService_Sell_NoSuchPosition(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "1000.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "10.00"}}, nil)

	_, err := svc.Sell(context.Background(), alice, "X", 1)
	if !errors.Is(err, domain.ErrNoSuchPosition) {
		t.Fatalf("expected ErrNoSuchPosition, got: %v", err)
	}
}

func TestTradingService_Sell_RejectsPlaceholder(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "1000.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{}}, nil)

	_, err := svc.Sell(context.Background(), alice, domain.SymbolPlaceholder, 1)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Reason != "must select symbol" {
		t.Fatalf("expected 'must select symbol', got: %v", err)
	}
}

func TestTradingService_RoundTrip_ReturnsToInitialCash(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "10000.00")
	svc := newTradingSvc(store, &stubQuotes{prices: map[string]string{"X": "33.33"}}, nil)

	if _, err := svc.Buy(context.Background(), alice, "X", 10); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := svc.Sell(context.Background(), alice, "X", 10); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	if !store.cash(alice.UserID).Equal(dec("10000.00")) {
		t.Fatalf("expected exact round trip to 10000.00, got %s", store.cash(alice.UserID))
	}
	if _, ok := store.shares(alice.UserID, "X"); ok {
		t.Fatalf("position must be deleted after full sale")
	}
	if len(store.transactions()) != 2 {
		t.Fatalf("expected 2 transactions")
	}
}

// ---------------------------------------------------------------------------
// Valuation
// ---------------------------------------------------------------------------

func TestTradingService_Valuation_FlagsFailedRows(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "1000.00")
	quotes := &stubQuotes{prices: map[string]string{"AAA": "10.00", "BBB": "5.00"}}
	svc := newTradingSvc(store, quotes, nil)

	for _, sym := range []string{"BBB", "AAA"} {
		if _, err := svc.Buy(context.Background(), alice, sym, 2); err != nil {
			t.Fatalf("Buy %s: %v", sym, err)
		}
	}
	delete(quotes.prices, "BBB")

	v, err := svc.Valuation(context.Background(), alice)
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}

	if len(v.Positions) != 2 || v.Positions[0].Symbol != "AAA" || v.Positions[1].Symbol != "BBB" {
		t.Fatalf("expected rows ordered by symbol, got %+v", v.Positions)
	}
	if v.Positions[0].Error != "" || v.Positions[0].Price == nil || !v.Positions[0].Total.Equal(dec("20.00")) {
		t.Fatalf("unexpected AAA row: %+v", v.Positions[0])
	}
	if v.Positions[1].Error == "" || v.Positions[1].Price != nil || !v.Positions[1].Total.IsZero() {
		t.Fatalf("expected BBB row flagged, got %+v", v.Positions[1])
	}
	if !v.Incomplete {
		t.Fatalf("expected valuation to be marked incomplete")
	}
	// cash 1000 - 20 - 10 = 970, plus AAA 20; BBB is excluded.
	if !v.TotalValue.Equal(dec("990.00")) {
		t.Fatalf("expected total 990.00, got %s", v.TotalValue)
	}
}

func TestTradingService_Valuation_Empty(t *testing.T) {
	store := newMemStore()
	alice := store.seedUser("alice", "10000.00")
	svc := newTradingSvc(store, &stubQuotes{}, nil)

	v, err := svc.Valuation(context.Background(), alice)
	if err != nil {
		t.Fatalf("Valuation returned error: %v", err)
	}
	if len(v.Positions) != 0 || v.Incomplete || !v.TotalValue.Equal(dec("10000")) {
		t.Fatalf("unexpected valuation: %+v", v)
	}
}
