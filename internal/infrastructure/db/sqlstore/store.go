package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// Compile-time interface checks.
var _ ports.AccountStore = (*Store)(nil)
var _ ports.AccountTx = (*accountTx)(nil)

// queryer is the subset shared by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements ports.AccountStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (*domain.User, error) {
	u := &domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         cash.Round(domain.CurrencyPlaces),
		CreatedAt:    time.Now().UTC(),
	}
	q := s.dialect.rebind(`INSERT INTO users (username, hash, cash, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowContext(ctx, q, u.Username, u.PasswordHash, u.Cash.StringFixed(domain.CurrencyPlaces), u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) FindUsersByUsername(ctx context.Context, username string) ([]domain.User, error) {
	q := s.dialect.rebind(`SELECT id, username, hash, cash, created_at FROM users WHERE username = ?`)
	rows, err := s.db.QueryContext(ctx, q, username)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Cash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	q := s.dialect.rebind(`SELECT id, username, hash, cash, created_at FROM users WHERE id = ?`)
	var u domain.User
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Cash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	q := s.dialect.rebind(`UPDATE users SET hash = ? WHERE id = ?`)
	err := expectOne(s.db.ExecContext(ctx, q, passwordHash, userID))
	if errors.Is(err, errNoRowsAffected) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Positions and transactions
// ---------------------------------------------------------------------------

func (s *Store) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	q := s.dialect.rebind(`SELECT user_id, symbol, shares FROM positions WHERE user_id = ? ORDER BY symbol`)
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	positions := []domain.Position{}
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.UserID, &p.Symbol, &p.Shares); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	q := s.dialect.rebind(`SELECT id, user_id, symbol, shares, price, total, executed_at
		FROM transactions WHERE user_id = ? ORDER BY id`)
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Shares, &t.Price, &t.Total, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// InTx runs fn in a database transaction at read-committed isolation (or
// SQLite's serializable default). Any error from fn, or a panic, rolls back.
func (s *Store) InTx(ctx context.Context, fn func(tx ports.AccountTx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, s.dialect.txOptions())
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&accountTx{q: sqlTx, dialect: s.dialect}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// AccountTx implementation
// ---------------------------------------------------------------------------

type accountTx struct {
	q       queryer
	dialect Dialect
}

func (t *accountTx) LockCash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	q := t.dialect.rebind(`SELECT cash FROM users WHERE id = ?` + t.dialect.lockSuffix())
	var cash decimal.Decimal
	err := t.q.QueryRowContext(ctx, q, userID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock cash: %w", err)
	}
	return cash, nil
}

func (t *accountTx) SetCash(ctx context.Context, userID int64, cash decimal.Decimal) error {
	q := t.dialect.rebind(`UPDATE users SET cash = ? WHERE id = ?`)
	if err := expectOne(t.q.ExecContext(ctx, q, cash.StringFixed(domain.CurrencyPlaces), userID)); err != nil {
		return fmt.Errorf("set cash: %w", err)
	}
	return nil
}

func (t *accountTx) GetPosition(ctx context.Context, userID int64, symbol string) (*domain.Position, error) {
	q := t.dialect.rebind(`SELECT user_id, symbol, shares FROM positions WHERE user_id = ? AND symbol = ?`)
	var p domain.Position
	err := t.q.QueryRowContext(ctx, q, userID, symbol).Scan(&p.UserID, &p.Symbol, &p.Shares)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}

func (t *accountTx) CreatePosition(ctx context.Context, userID int64, symbol string, shares int64) error {
	q := t.dialect.rebind(`INSERT INTO positions (user_id, symbol, shares) VALUES (?, ?, ?)`)
	if _, err := t.q.ExecContext(ctx, q, userID, symbol, shares); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}

func (t *accountTx) SetPositionShares(ctx context.Context, userID int64, symbol string, shares int64) error {
	q := t.dialect.rebind(`UPDATE positions SET shares = ? WHERE user_id = ? AND symbol = ?`)
	if err := expectOne(t.q.ExecContext(ctx, q, shares, userID, symbol)); err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return nil
}

func (t *accountTx) DeletePosition(ctx context.Context, userID int64, symbol string) error {
	q := t.dialect.rebind(`DELETE FROM positions WHERE user_id = ? AND symbol = ?`)
	if err := expectOne(t.q.ExecContext(ctx, q, userID, symbol)); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

func (t *accountTx) AppendTransaction(ctx context.Context, tr *domain.Transaction) error {
	q := t.dialect.rebind(`INSERT INTO transactions (user_id, symbol, shares, price, total, executed_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := t.q.QueryRowContext(ctx, q,
		tr.UserID, tr.Symbol, tr.Shares, tr.Price.String(), tr.Total.StringFixed(domain.CurrencyPlaces), tr.ExecutedAt,
	).Scan(&tr.ID)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

var errNoRowsAffected = errors.New("no rows affected")

// expectOne turns a statement that touched nothing into an error so a
// missing row cannot pass silently inside a trade.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNoRowsAffected
	}
	return nil
}
