package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trading-simulator/internal/api/middleware"
	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

var testSession = &domain.Session{ID: "sid-1", UserID: 7, Username: "alice"}

// newJSONContext builds an echo context for a JSON request. When sess is
// non-nil it is injected the way middleware.RequireSession would.
func newJSONContext(method, path, body string, sess *domain.Session) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sess != nil {
		c.Set(middleware.SessionKey, sess)
	}
	return c, rec
}

// --- AuthService ---

type stubAuthService struct {
	registerFn     func(ctx context.Context, username, password, confirmation string) (*domain.User, error)
	authenticateFn func(ctx context.Context, username, password string) (domain.Identity, error)
	changeFn       func(ctx context.Context, id domain.Identity, password, confirmation string) error
}

func (s *stubAuthService) Register(ctx context.Context, username, password, confirmation string) (*domain.User, error) {
	return s.registerFn(ctx, username, password, confirmation)
}

func (s *stubAuthService) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	return s.authenticateFn(ctx, username, password)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, id domain.Identity, password, confirmation string) error {
	return s.changeFn(ctx, id, password, confirmation)
}

// --- SessionService ---

type stubSessionService struct {
	mu       sync.Mutex
	started  []domain.Identity
	ended    []string
	messages map[string]string
	resolve  map[string]*domain.Session
	popErr   error
}

func newStubSessionService() *stubSessionService {
	return &stubSessionService{messages: map[string]string{}, resolve: map[string]*domain.Session{}}
}

func (s *stubSessionService) Start(_ context.Context, id domain.Identity, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, id)
	s.messages["new-sid"] = message
	return "signed-token", nil
}

func (s *stubSessionService) Resolve(_ context.Context, token string) (*domain.Session, error) {
	if sess, ok := s.resolve[token]; ok {
		return sess, nil
	}
	return nil, domain.ErrNoSession
}

func (s *stubSessionService) End(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, token)
	return nil
}

func (s *stubSessionService) SetMessage(_ context.Context, sessionID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = message
	return nil
}

func (s *stubSessionService) PopMessage(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.popErr != nil {
		return "", s.popErr
	}
	msg := s.messages[sessionID]
	delete(s.messages, sessionID)
	return msg, nil
}

// --- TradingService ---

type stubTradingService struct {
	quoteFn     func(ctx context.Context, symbol string) (domain.Quote, error)
	buyFn       func(ctx context.Context, id domain.Identity, symbol string, shares int64) (*ports.TradeResult, error)
	sellFn      func(ctx context.Context, id domain.Identity, symbol string, shares int64) (*ports.TradeResult, error)
	valuationFn func(ctx context.Context, id domain.Identity) (*ports.Valuation, error)
	historyFn   func(ctx context.Context, id domain.Identity) ([]domain.Transaction, error)
	holdingsFn  func(ctx context.Context, id domain.Identity) ([]domain.Position, error)
}

func (s *stubTradingService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	return s.quoteFn(ctx, symbol)
}

func (s *stubTradingService) Buy(ctx context.Context, id domain.Identity, symbol string, shares int64) (*ports.TradeResult, error) {
	return s.buyFn(ctx, id, symbol, shares)
}

func (s *stubTradingService) Sell(ctx context.Context, id domain.Identity, symbol string, shares int64) (*ports.TradeResult, error) {
	return s.sellFn(ctx, id, symbol, shares)
}

func (s *stubTradingService) Valuation(ctx context.Context, id domain.Identity) (*ports.Valuation, error) {
	return s.valuationFn(ctx, id)
}

func (s *stubTradingService) History(ctx context.Context, id domain.Identity) ([]domain.Transaction, error) {
	return s.historyFn(ctx, id)
}

func (s *stubTradingService) Holdings(ctx context.Context, id domain.Identity) ([]domain.Position, error) {
	return s.holdingsFn(ctx, id)
}

// --- IdempotencyGuard ---

type stubGuard struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newStubGuard() *stubGuard { return &stubGuard{claimed: map[string]bool{}} }

func (g *stubGuard) Claim(_ context.Context, scope, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	k := scope + ":" + key
	if g.claimed[k] {
		return false, nil
	}
	g.claimed[k] = true
	return true, nil
}

func (g *stubGuard) Release(_ context.Context, scope, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := scope + ":" + key
	delete(g.claimed, k)
	g.released = append(g.released, k)
	return nil
}

// --- ActivityRecorder / ActivityService ---

type stubRecorder struct {
	mu      sync.Mutex
	entries []domain.Activity
}

func (r *stubRecorder) Record(a domain.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, a)
}

type stubActivityService struct {
	recentFn func(ctx context.Context, id domain.Identity, limit int) ([]domain.Activity, error)
}

func (s *stubActivityService) Recent(ctx context.Context, id domain.Identity, limit int) ([]domain.Activity, error) {
	return s.recentFn(ctx, id, limit)
}

// findCookie returns the named Set-Cookie on rec.
func findCookie(rec *httptest.ResponseRecorder, name string) (*http.Cookie, bool) {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck, true
		}
	}
	return nil, false
}

func newFormRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }
