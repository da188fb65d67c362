package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trading-simulator/internal/api/middleware"
	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// ctxSession extracts the session injected by middleware.RequireSession.
// Its absence means the route was registered without the gate.
func ctxSession(c echo.Context) (*domain.Session, error) {
	s := middleware.SessionFrom(c)
	if s == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return s, nil
}
