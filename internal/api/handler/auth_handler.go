package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trading-simulator/internal/api/metrics"
	"github.com/99minutos/trading-simulator/internal/api/middleware"
	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	sessions    ports.SessionService
	activity    ports.ActivityRecorder
	sessionTTL  time.Duration
	log         zerolog.Logger
}

// NewAuthHandler wires the account endpoints. activity may be nil.
func NewAuthHandler(authService ports.AuthService, sessions ports.SessionService, activity ports.ActivityRecorder, sessionTTL time.Duration, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		activity:    activity,
		sessionTTL:  sessionTTL,
		log:         log,
	}
}

// Register creates a new account funded with the initial cash balance.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Username, password and confirmation"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, req.Confirmation)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{
		Message: domain.MsgRegistered,
		User: userResponse{
			ID:          user.ID,
			Username:    user.Username,
			Cash:        user.Cash,
			CashDisplay: usd(user.Cash),
		},
	})
}

// Login authenticates a user, starts a session and sets the session cookie.
// A session presented with the request is ended first.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	if token := middleware.TokenFromRequest(c); token != "" {
		h.endSession(ctx, token)
		clearSessionCookie(c)
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.authService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		}
		return err
	}

	token, err := h.sessions.Start(ctx, id, domain.MsgWelcomeBack)
	if err != nil {
		return err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, loginResponse{
		Message:  domain.MsgWelcomeBack,
		Username: id.Username,
		Token:    token,
	})
}

// LoginPrompt answers the redirect target of gated routes.
//
// @Summary      Login prompt
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /login [get]
func (h *AuthHandler) LoginPrompt(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "log in to continue"})
}

// Logout clears the session and its cookie, then sends the client to the
// login page. It succeeds whether or not a session was present.
//
// @Summary      Logout
// @Tags         auth
// @Success      302
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if token := middleware.TokenFromRequest(c); token != "" {
		h.endSession(c.Request().Context(), token)
	}
	clearSessionCookie(c)
	return c.Redirect(http.StatusFound, middleware.LoginPath)
}

// ChangePassword replaces the caller's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      passwordRequest  true  "New password and confirmation"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	s, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}

	ctx := c.Request().Context()
	if err := h.authService.ChangePassword(ctx, s.Identity(), req.Password, req.Confirmation); err != nil {
		return err
	}
	if err := h.sessions.SetMessage(ctx, s.ID, domain.MsgPasswordChanged); err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID).Msg("could not set session message")
	}

	return c.JSON(http.StatusOK, messageResponse{Message: domain.MsgPasswordChanged})
}

// endSession records the logout and drops the server-side state. Failures
// are logged; the client is logged out regardless.
func (h *AuthHandler) endSession(ctx context.Context, token string) {
	s, err := h.sessions.Resolve(ctx, token)
	if err == nil && h.activity != nil {
		h.activity.Record(domain.Activity{
			UserID:   s.UserID,
			Username: s.Username,
			Kind:     domain.ActivityLogout,
			At:       time.Now().UTC(),
		})
	}
	if err := h.sessions.End(ctx, token); err != nil {
		h.log.Warn().Err(err).Msg("could not end session")
	}
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
