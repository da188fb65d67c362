package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/trading-simulator/docs" // registers the swagger spec
	"github.com/99minutos/trading-simulator/internal/api/handler"
	"github.com/99minutos/trading-simulator/internal/api/middleware"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// Deps carries everything the HTTP layer needs. Recorder and Idempotency
// may be nil.
type Deps struct {
	Auth        ports.AuthService
	Sessions    ports.SessionService
	Trading     ports.TradingService
	Activity    ports.ActivityService
	Recorder    ports.ActivityRecorder
	Idempotency ports.IdempotencyGuard
	SessionTTL  time.Duration
	// Readiness lists the dependency probes behind /health/ready.
	Readiness map[string]handler.Check
	// Metrics receives the HTTP metrics and backs /metrics. Nil means the
	// default Prometheus registry.
	Metrics *prometheus.Registry
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Metrics != nil {
		registerer, gatherer = d.Metrics, d.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "simulator",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.NoCache())

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Sessions, d.Recorder, d.SessionTTL, d.Log)
	tradeHandler := handler.NewTradeHandler(d.Trading, d.Sessions, d.Idempotency, d.Log)
	portfolioHandler := handler.NewPortfolioHandler(d.Trading, d.Sessions, d.Log)
	activityHandler := handler.NewActivityHandler(d.Activity)
	requireSession := middleware.RequireSession(d.Sessions)

	// --- Account routes ---
	e.GET("/login", authHandler.LoginPrompt)
	e.POST("/login", authHandler.Login)
	e.POST("/register", authHandler.Register)
	e.GET("/logout", authHandler.Logout)
	e.POST("/logout", authHandler.Logout)

	// --- Session-gated routes ---
	e.GET("/", portfolioHandler.Portfolio, requireSession)
	e.GET("/portfolio", portfolioHandler.Portfolio, requireSession)
	e.GET("/history", portfolioHandler.History, requireSession)
	e.GET("/quote", tradeHandler.Quote, requireSession)
	e.POST("/quote", tradeHandler.Quote, requireSession)
	e.POST("/buy", tradeHandler.Buy, requireSession)
	e.GET("/sell", tradeHandler.Holdings, requireSession)
	e.POST("/sell", tradeHandler.Sell, requireSession)
	e.POST("/password", authHandler.ChangePassword, requireSession)
	e.GET("/activity", activityHandler.Recent, requireSession)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger feeds echo's request logging into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
