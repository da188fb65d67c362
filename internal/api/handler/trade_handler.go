package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trading-simulator/internal/api/metrics"
	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// HeaderIdempotencyKey lets a client mark a trade submission so a retry of
// the same request is not executed twice.
const HeaderIdempotencyKey = "Idempotency-Key"

type TradeHandler struct {
	trading  ports.TradingService
	sessions ports.SessionService
	guard    ports.IdempotencyGuard
	log      zerolog.Logger
}

// NewTradeHandler wires the quote and trade endpoints. guard may be nil, in
// which case Idempotency-Key headers are ignored.
func NewTradeHandler(trading ports.TradingService, sessions ports.SessionService, guard ports.IdempotencyGuard, log zerolog.Logger) *TradeHandler {
	return &TradeHandler{trading: trading, sessions: sessions, guard: guard, log: log}
}

// Quote looks up the current price of a symbol.
//
// @Summary      Look up a quote
// @Tags         trading
// @Produce      json
// @Param        symbol  query     string  true  "Ticker symbol"
// @Success      200     {object}  quoteResponse
// @Failure      400     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /quote [get]
func (h *TradeHandler) Quote(c echo.Context) error {
	if _, err := ctxSession(c); err != nil {
		return err
	}

	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	q, err := h.trading.Quote(c.Request().Context(), req.Symbol)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, quoteResponse{
		Name:         q.Name,
		Symbol:       q.Symbol,
		Price:        q.Price,
		PriceDisplay: usd(q.Price),
	})
}

// Buy purchases whole shares at the current quote.
//
// @Summary      Buy shares
// @Tags         trading
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string        false  "Client request key"
// @Param        body             body      tradeRequest  true   "Symbol and number of shares"
// @Success      200              {object}  tradeResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /buy [post]
func (h *TradeHandler) Buy(c echo.Context) error {
	return h.trade(c, domain.SideBuy)
}

// Sell disposes of whole shares of an owned symbol at the current quote.
//
// @Summary      Sell shares
// @Tags         trading
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string        false  "Client request key"
// @Param        body             body      tradeRequest  true   "Symbol and number of shares"
// @Success      200              {object}  tradeResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /sell [post]
func (h *TradeHandler) Sell(c echo.Context) error {
	return h.trade(c, domain.SideSell)
}

// Holdings lists the positions offered by the sell form.
//
// @Summary      Sellable positions
// @Tags         trading
// @Produce      json
// @Success      200  {object}  holdingsResponse
// @Router       /sell [get]
func (h *TradeHandler) Holdings(c echo.Context) error {
	s, err := ctxSession(c)
	if err != nil {
		return err
	}

	positions, err := h.trading.Holdings(c.Request().Context(), s.Identity())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, holdingsResponse{Positions: positions})
}

func (h *TradeHandler) trade(c echo.Context, side domain.TradeSide) error {
	s, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req tradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	shares, err := domain.ParseShares(string(req.Shares))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := s.Identity()

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	claimed, err := h.claim(ctx, id.UserID, key)
	if err != nil {
		return err
	}

	var res *ports.TradeResult
	if side == domain.SideBuy {
		res, err = h.trading.Buy(ctx, id, req.Symbol, shares)
	} else {
		res, err = h.trading.Sell(ctx, id, req.Symbol, shares)
	}
	if err != nil {
		if claimed {
			h.release(ctx, id.UserID, key)
		}
		metrics.TradesRejectedTotal.WithLabelValues(string(side), rejectReason(err)).Inc()
		return err
	}
	metrics.TradesExecutedTotal.WithLabelValues(string(side)).Inc()

	msg := boughtMessage(res.Shares, res.Symbol)
	if side == domain.SideSell {
		msg = soldMessage(res.Shares, res.Symbol)
	}
	if err := h.sessions.SetMessage(ctx, s.ID, msg); err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID).Msg("could not set session message")
	}

	return c.JSON(http.StatusOK, tradeResponse{
		Message:       msg,
		Side:          res.Side,
		Symbol:        res.Symbol,
		Name:          res.Name,
		Shares:        res.Shares,
		Price:         res.Price,
		Amount:        res.Amount,
		AmountDisplay: usd(res.Amount),
		Cash:          res.Cash,
		CashDisplay:   usd(res.Cash),
	})
}

// claim reserves key for the user. It returns domain.ErrDuplicateRequest
// for a replay. When the guard is unreachable the trade proceeds unguarded.
func (h *TradeHandler) claim(ctx context.Context, userID int64, key string) (bool, error) {
	if h.guard == nil || key == "" {
		return false, nil
	}
	ok, err := h.guard.Claim(ctx, idempotencyScope(userID), key)
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", userID).Msg("idempotency guard unavailable; proceeding")
		return false, nil
	}
	if !ok {
		return false, domain.ErrDuplicateRequest
	}
	return true, nil
}

func (h *TradeHandler) release(ctx context.Context, userID int64, key string) {
	if err := h.guard.Release(ctx, idempotencyScope(userID), key); err != nil {
		h.log.Warn().Err(err).Int64("user_id", userID).Msg("could not release idempotency key")
	}
}

func idempotencyScope(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// rejectReason maps a failed trade to its metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "invalid_input"
	case errors.Is(err, domain.ErrSymbolNotRecognized):
		return "symbol_not_recognized"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, domain.ErrNoSuchPosition):
		return "no_such_position"
	default:
		return "store_error"
	}
}
