package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// defaultLookupConcurrency bounds parallel quote lookups during valuation.
const defaultLookupConcurrency = 4

// TradingService executes buys and sells against the account store.
type TradingService struct {
	store    ports.AccountStore
	quotes   ports.QuoteProvider
	activity ports.ActivityRecorder
	log      zerolog.Logger
	now      func() time.Time
}

func NewTradingService(store ports.AccountStore, quotes ports.QuoteProvider, activity ports.ActivityRecorder, log zerolog.Logger) *TradingService {
	return &TradingService{
		store:    store,
		quotes:   quotes,
		activity: activity,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Quote resolves a symbol for display.
func (s *TradingService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.lookup(ctx, sym)
}

// Buy purchases shares of symbol at the current quote.
func (s *TradingService) Buy(ctx context.Context, id domain.Identity, symbol string, shares int64) (*ports.TradeResult, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateShares(shares); err != nil {
		return nil, err
	}

	// 1. Resolve the price before any row is locked.
	q, err := s.lookup(ctx, sym)
	if err != nil {
		return nil, err
	}
	cost := domain.Amount(q.Price, shares)

	// 2. Debit, upsert the position and append the transaction as one unit.
	var cash decimal.Decimal
	err = s.store.InTx(ctx, func(tx ports.AccountTx) error {
		balance, err := tx.LockCash(ctx, id.UserID)
		if err != nil {
			return err
		}
		if cost.GreaterThan(balance) {
			return &domain.TradeError{Kind: domain.ErrInsufficientFunds, Side: domain.SideBuy, Symbol: q.Symbol, Shares: shares}
		}

		cash = balance.Sub(cost)
		if err := tx.SetCash(ctx, id.UserID, cash); err != nil {
			return err
		}

		pos, err := tx.GetPosition(ctx, id.UserID, q.Symbol)
		if err != nil {
			return err
		}
		if pos == nil {
			err = tx.CreatePosition(ctx, id.UserID, q.Symbol, shares)
		} else {
			err = tx.SetPositionShares(ctx, id.UserID, q.Symbol, pos.Shares+shares)
		}
		if err != nil {
			return err
		}

		return tx.AppendTransaction(ctx, &domain.Transaction{
			UserID:     id.UserID,
			Symbol:     q.Symbol,
			Shares:     shares,
			Price:      q.Price,
			Total:      cost.Neg(),
			ExecutedAt: s.now(),
		})
	})
	if err != nil {
		return nil, tradeErr("buy", err)
	}

	// 3. Audit trail (non-fatal, asynchronous).
	s.record(domain.Activity{UserID: id.UserID, Username: id.Username, Kind: domain.ActivityBuy, Symbol: q.Symbol, Shares: shares, Amount: cost.Neg()})

	s.log.Info().
		Int64("user_id", id.UserID).
		Str("symbol", q.Symbol).
		Int64("shares", shares).
		Str("cost", cost.StringFixed(domain.CurrencyPlaces)).
		Msg("buy executed")

	return &ports.TradeResult{
		Side:   domain.SideBuy,
		Symbol: q.Symbol,
		Name:   q.Name,
		Shares: shares,
		Price:  q.Price,
		Amount: cost,
		Cash:   cash,
	}, nil
}

// Sell disposes of shares of an owned symbol at the current quote.
func (s *TradingService) Sell(ctx context.Context, id domain.Identity, symbol string, shares int64) (*ports.TradeResult, error) {
	sym, err := domain.NormalizeSellSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateShares(shares); err != nil {
		return nil, err
	}

	// 1. Resolve the price before any row is locked.
	q, err := s.lookup(ctx, sym)
	if err != nil {
		return nil, err
	}
	proceeds := domain.Amount(q.Price, shares)

	// 2. Reduce the position, credit cash and append the transaction as one unit.
	var cash decimal.Decimal
	err = s.store.InTx(ctx, func(tx ports.AccountTx) error {
		// The user row is locked first so concurrent trades of one user queue up.
		balance, err := tx.LockCash(ctx, id.UserID)
		if err != nil {
			return err
		}

		pos, err := tx.GetPosition(ctx, id.UserID, q.Symbol)
		if err != nil {
			return err
		}
		if pos == nil {
			return &domain.TradeError{Kind: domain.ErrNoSuchPosition, Side: domain.SideSell, Symbol: q.Symbol, Shares: shares}
		}
		if shares > pos.Shares {
			return &domain.TradeError{Kind: domain.ErrInsufficientShares, Side: domain.SideSell, Symbol: q.Symbol, Shares: shares, Held: pos.Shares}
		}

		if shares == pos.Shares {
			err = tx.DeletePosition(ctx, id.UserID, q.Symbol)
		} else {
			err = tx.SetPositionShares(ctx, id.UserID, q.Symbol, pos.Shares-shares)
		}
		if err != nil {
			return err
		}

		cash = balance.Add(proceeds)
		if err := tx.SetCash(ctx, id.UserID, cash); err != nil {
			return err
		}

		return tx.AppendTransaction(ctx, &domain.Transaction{
			UserID:     id.UserID,
			Symbol:     q.Symbol,
			Shares:     -shares,
			Price:      q.Price,
			Total:      proceeds,
			ExecutedAt: s.now(),
		})
	})
	if err != nil {
		return nil, tradeErr("sell", err)
	}

	// 3. Audit trail (non-fatal, asynchronous).
	s.record(domain.Activity{UserID: id.UserID, Username: id.Username, Kind: domain.ActivitySell, Symbol: q.Symbol, Shares: shares, Amount: proceeds})

	s.log.Info().
		Int64("user_id", id.UserID).
		Str("symbol", q.Symbol).
		Int64("shares", shares).
		Str("proceeds", proceeds.StringFixed(domain.CurrencyPlaces)).
		Msg("sell executed")

	return &ports.TradeResult{
		Side:   domain.SideSell,
		Symbol: q.Symbol,
		Name:   q.Name,
		Shares: shares,
		Price:  q.Price,
		Amount: proceeds,
		Cash:   cash,
	}, nil
}

// Valuation prices every position concurrently. A row whose lookup fails is
// flagged and left out of TotalValue instead of failing the whole request.
func (s *TradingService) Valuation(ctx context.Context, id domain.Identity) (*ports.Valuation, error) {
	user, err := s.store.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("valuation: %w", err)
	}
	positions, err := s.store.ListPositions(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("valuation: %w", err)
	}

	rows := make([]ports.ValuedPosition, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultLookupConcurrency)
	for i, p := range positions {
		i, p := i, p
		rows[i] = ports.ValuedPosition{Symbol: p.Symbol, Shares: p.Shares, Total: decimal.Zero}
		g.Go(func() error {
			q, err := s.quotes.Lookup(gctx, p.Symbol)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("valuation lookup failed, row flagged")
				rows[i].Error = domain.ErrSymbolNotRecognized.Error()
				return nil
			}
			price := q.Price
			rows[i].Name = q.Name
			rows[i].Price = &price
			rows[i].Total = domain.Amount(price, p.Shares)
			return nil
		})
	}
	_ = g.Wait()

	v := &ports.Valuation{Positions: rows, Cash: user.Cash, TotalValue: user.Cash}
	for _, r := range rows {
		if r.Error != "" {
			v.Incomplete = true
			continue
		}
		v.TotalValue = v.TotalValue.Add(r.Total)
	}
	return v, nil
}

// History returns every transaction of the user in execution order.
func (s *TradingService) History(ctx context.Context, id domain.Identity) ([]domain.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return txs, nil
}

// Holdings returns the positions the user can sell.
func (s *TradingService) Holdings(ctx context.Context, id domain.Identity) ([]domain.Position, error) {
	positions, err := s.store.ListPositions(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}
	return positions, nil
}

// lookup resolves a symbol once. There is no retry: a failed lookup rejects
// the operation.
func (s *TradingService) lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("quote lookup failed")
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrSymbolNotRecognized, symbol)
	}
	return q, nil
}

func (s *TradingService) record(a domain.Activity) {
	if s.activity == nil {
		return
	}
	a.At = s.now()
	s.activity.Record(a)
}

// tradeErr passes business rejections through untouched and wraps store
// failures with the operation name.
func tradeErr(op string, err error) error {
	var te *domain.TradeError
	if errors.As(err, &te) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
