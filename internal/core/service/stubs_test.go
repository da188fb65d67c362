package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type posKey struct {
	userID int64
	symbol string
}

// memState is the full contents of the in-memory store. InTx works on a copy
// and swaps it in on success, which gives all-or-nothing commits.
type memState struct {
	users     map[int64]domain.User
	positions map[posKey]int64
	txs       []domain.Transaction
	nextUser  int64
}

func (s memState) clone() memState {
	c := memState{
		users:     make(map[int64]domain.User, len(s.users)),
		positions: make(map[posKey]int64, len(s.positions)),
		txs:       append([]domain.Transaction(nil), s.txs...),
		nextUser:  s.nextUser,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	return c
}

type memStore struct {
	mu      sync.Mutex
	state   memState
	failTx  error // returned by AppendTransaction when set
	findErr error
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		users:     map[int64]domain.User{},
		positions: map[posKey]int64{},
	}}
}

func (m *memStore) seedUser(username string, cash string) domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextUser++
	u := domain.User{ID: m.state.nextUser, Username: username, Cash: decimal.RequireFromString(cash)}
	m.state.users[u.ID] = u
	return domain.Identity{UserID: u.ID, Username: username}
}

func (m *memStore) cash(userID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[userID].Cash
}

func (m *memStore) shares(userID int64, symbol string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.state.positions[posKey{userID, symbol}]
	return n, ok
}

func (m *memStore) transactions() []domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Transaction(nil), m.state.txs...)
}

func (m *memStore) CreateUser(_ context.Context, username, hash string, cash decimal.Decimal) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.state.users {
		if u.Username == username {
			return nil, domain.ErrUserExists
		}
	}
	m.state.nextUser++
	u := domain.User{ID: m.state.nextUser, Username: username, PasswordHash: hash, Cash: cash, CreatedAt: time.Now().UTC()}
	m.state.users[u.ID] = u
	return &u, nil
}

func (m *memStore) FindUsersByUsername(_ context.Context, username string) ([]domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.state.users {
		if u.Username == username {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.state.users[userID] = u
	return nil
}

func (m *memStore) ListPositions(_ context.Context, userID int64) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for k, n := range m.state.positions {
		if k.userID == userID {
			out = append(out, domain.Position{UserID: userID, Symbol: k.symbol, Shares: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *memStore) ListTransactions(_ context.Context, userID int64) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.state.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx ports.AccountTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memTx{state: &work, failTx: m.failTx}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memTx struct {
	state  *memState
	failTx error
}

func (t *memTx) LockCash(_ context.Context, userID int64) (decimal.Decimal, error) {
	u, ok := t.state.users[userID]
	if !ok {
		return decimal.Zero, domain.ErrUserNotFound
	}
	return u.Cash, nil
}

func (t *memTx) SetCash(_ context.Context, userID int64, cash decimal.Decimal) error {
	u := t.state.users[userID]
	u.Cash = cash
	t.state.users[userID] = u
	return nil
}

func (t *memTx) GetPosition(_ context.Context, userID int64, symbol string) (*domain.Position, error) {
	n, ok := t.state.positions[posKey{userID, symbol}]
	if !ok {
		return nil, nil
	}
	return &domain.Position{UserID: userID, Symbol: symbol, Shares: n}, nil
}

func (t *memTx) CreatePosition(_ context.Context, userID int64, symbol string, shares int64) error {
	t.state.positions[posKey{userID, symbol}] = shares
	return nil
}

func (t *memTx) SetPositionShares(_ context.Context, userID int64, symbol string, shares int64) error {
	t.state.positions[posKey{userID, symbol}] = shares
	return nil
}

func (t *memTx) DeletePosition(_ context.Context, userID int64, symbol string) error {
	delete(t.state.positions, posKey{userID, symbol})
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, tr *domain.Transaction) error {
	if t.failTx != nil {
		return t.failTx
	}
	tr.ID = int64(len(t.state.txs) + 1)
	t.state.txs = append(t.state.txs, *tr)
	return nil
}

// stubQuotes resolves symbols from a fixed price table.
type stubQuotes struct {
	mu     sync.Mutex
	prices map[string]string
	calls  int
}

func (q *stubQuotes) Lookup(_ context.Context, symbol string) (domain.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	p, ok := q.prices[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrQuoteNotFound
	}
	return domain.Quote{Name: symbol + " Inc.", Symbol: symbol, Price: decimal.RequireFromString(p)}, nil
}

type stubRecorder struct {
	mu      sync.Mutex
	entries []domain.Activity
}

func (r *stubRecorder) Record(a domain.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, a)
}

func (r *stubRecorder) kinds() []domain.ActivityKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityKind, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Kind
	}
	return out
}

type stubSessionStore struct {
	sessions map[string]domain.Session
	ttls     map[string]time.Duration
	getErr   error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: map[string]domain.Session{}, ttls: map[string]time.Duration{}}
}

func (s *stubSessionStore) Save(_ context.Context, sess domain.Session, ttl time.Duration) error {
	s.sessions[sess.ID] = sess
	s.ttls[sess.ID] = ttl
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNoSession
	}
	return &sess, nil
}

func (s *stubSessionStore) SetMessage(_ context.Context, id, message string) error {
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrNoSession
	}
	sess.Message = message
	s.sessions[id] = sess
	return nil
}

func (s *stubSessionStore) PopMessage(_ context.Context, id string) (string, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return "", domain.ErrNoSession
	}
	msg := sess.Message
	sess.Message = ""
	s.sessions[id] = sess
	return msg, nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

var errStoreDown = errors.New("store unavailable")
