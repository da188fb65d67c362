package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

type PortfolioHandler struct {
	trading  ports.TradingService
	sessions ports.SessionService
	log      zerolog.Logger
}

func NewPortfolioHandler(trading ports.TradingService, sessions ports.SessionService, log zerolog.Logger) *PortfolioHandler {
	return &PortfolioHandler{trading: trading, sessions: sessions, log: log}
}

// Portfolio values the caller's holdings at current prices and shows the
// pending one-shot message, if any.
//
// @Summary      Portfolio
// @Tags         portfolio
// @Produce      json
// @Success      200  {object}  portfolioResponse
// @Failure      500  {object}  errorResponse
// @Router       /portfolio [get]
func (h *PortfolioHandler) Portfolio(c echo.Context) error {
	s, err := ctxSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	v, err := h.trading.Valuation(ctx, s.Identity())
	if err != nil {
		return err
	}

	msg, err := h.sessions.PopMessage(ctx, s.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID).Msg("could not read session message")
	}
	if msg == "" {
		msg = domain.MsgPortfolio
	}

	rows := make([]portfolioRow, 0, len(v.Positions))
	for _, p := range v.Positions {
		row := portfolioRow{ValuedPosition: p, TotalDisplay: usd(p.Total)}
		if p.Price != nil {
			row.PriceDisplay = usd(*p.Price)
		}
		rows = append(rows, row)
	}

	return c.JSON(http.StatusOK, portfolioResponse{
		Message:      msg,
		Positions:    rows,
		Cash:         v.Cash,
		CashDisplay:  usd(v.Cash),
		TotalValue:   v.TotalValue,
		TotalDisplay: usd(v.TotalValue),
		Incomplete:   v.Incomplete,
	})
}

// History lists every executed trade in execution order.
//
// @Summary      Transaction history
// @Tags         portfolio
// @Produce      json
// @Success      200  {object}  historyResponse
// @Router       /history [get]
func (h *PortfolioHandler) History(c echo.Context) error {
	s, err := ctxSession(c)
	if err != nil {
		return err
	}

	txs, err := h.trading.History(c.Request().Context(), s.Identity())
	if err != nil {
		return err
	}

	entries := make([]historyEntry, 0, len(txs))
	for _, t := range txs {
		entries = append(entries, historyEntry{
			Kind:         t.Kind(),
			Symbol:       t.Symbol,
			Shares:       t.Shares,
			Price:        t.Price,
			PriceDisplay: usd(t.Price),
			Total:        t.Total,
			ExecutedAt:   t.ExecutedAt,
		})
	}

	return c.JSON(http.StatusOK, historyResponse{Message: domain.MsgHistory, Transactions: entries})
}
