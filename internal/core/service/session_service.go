package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// SessionService stores session state server-side and hands the client a
// signed token that carries only the session id and its expiry.
type SessionService struct {
	store  ports.SessionStore
	secret []byte
	ttl    time.Duration
}

func NewSessionService(store ports.SessionStore, secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{store: store, secret: []byte(secret), ttl: ttl}
}

// TTL is the lifetime of newly started sessions.
func (s *SessionService) TTL() time.Duration { return s.ttl }

func (s *SessionService) Start(ctx context.Context, id domain.Identity, message string) (string, error) {
	sess := domain.Session{
		ID:       uuid.NewString(),
		UserID:   id.UserID,
		Username: id.Username,
		Message:  message,
	}
	if err := s.store.Save(ctx, sess, s.ttl); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sid": sess.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("start session: sign token: %w", err)
	}
	return token, nil
}

func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	sid, err := s.sessionID(token)
	if err != nil {
		return nil, domain.ErrNoSession
	}
	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return sess, nil
}

func (s *SessionService) End(ctx context.Context, token string) error {
	sid, err := s.sessionID(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, sid); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (s *SessionService) SetMessage(ctx context.Context, sessionID, message string) error {
	return s.store.SetMessage(ctx, sessionID, message)
}

func (s *SessionService) PopMessage(ctx context.Context, sessionID string) (string, error) {
	return s.store.PopMessage(ctx, sessionID)
}

func (s *SessionService) sessionID(token string, opts ...jwt.ParserOption) (string, error) {
	if token == "" {
		return "", domain.ErrNoSession
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return "", domain.ErrNoSession
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", domain.ErrNoSession
	}
	return sid, nil
}
