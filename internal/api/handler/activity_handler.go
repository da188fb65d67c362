package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const activityPageSize = 50

type ActivityHandler struct {
	activity ports.ActivityService
}

func NewActivityHandler(activity ports.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// Recent returns the caller's latest account events, newest first.
//
// @Summary      Recent account activity
// @Tags         portfolio
// @Produce      json
// @Success      200  {object}  activityResponse
// @Router       /activity [get]
func (h *ActivityHandler) Recent(c echo.Context) error {
	s, err := ctxSession(c)
	if err != nil {
		return err
	}

	entries, err := h.activity.Recent(c.Request().Context(), s.Identity(), activityPageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activityResponse{Activity: entries})
}
