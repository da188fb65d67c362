package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// dummyHash is compared against when no user matches so that unknown
// usernames cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// AuthService implements registration, authentication and password changes.
type AuthService struct {
	store       ports.AccountStore
	activity    ports.ActivityRecorder
	initialCash decimal.Decimal
	hashCost    int
	log         zerolog.Logger
}

func NewAuthService(store ports.AccountStore, activity ports.ActivityRecorder, initialCash decimal.Decimal, log zerolog.Logger) *AuthService {
	if !initialCash.IsPositive() {
		initialCash = domain.DefaultInitialCash
	}
	return &AuthService{
		store:       store,
		activity:    activity,
		initialCash: initialCash,
		hashCost:    bcrypt.DefaultCost,
		log:         log,
	}
}

// Register creates a user funded with the initial cash balance.
func (s *AuthService) Register(ctx context.Context, username, password, confirmation string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "must provide username")
	}

	existing, err := s.store.FindUsersByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if len(existing) > 0 {
		return nil, domain.ErrUserExists
	}

	if err := domain.ValidatePassword(password, confirmation).Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	// The unique constraint decides races between concurrent registrations.
	user, err := s.store.CreateUser(ctx, username, string(hash), s.initialCash)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.record(domain.Activity{UserID: user.ID, Username: user.Username, Kind: domain.ActivityRegister, Amount: user.Cash})
	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Authenticate verifies credentials. Every failure other than missing input
// is reported as domain.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Identity{}, domain.NewValidationError("username", "must provide username")
	}
	if password == "" {
		return domain.Identity{}, domain.NewValidationError("password", "must provide password")
	}

	users, err := s.store.FindUsersByUsername(ctx, username)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("authenticate: %w", err)
	}
	if len(users) != 1 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	user := users[0]
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	id := domain.Identity{UserID: user.ID, Username: user.Username}
	s.record(domain.Activity{UserID: id.UserID, Username: id.Username, Kind: domain.ActivityLogin})
	return id, nil
}

// ChangePassword replaces the user's password hash after applying the
// password policy.
func (s *AuthService) ChangePassword(ctx context.Context, id domain.Identity, password, confirmation string) error {
	if err := domain.ValidatePassword(password, confirmation).Err(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("change password: hash password: %w", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, id.UserID, string(hash)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.record(domain.Activity{UserID: id.UserID, Username: id.Username, Kind: domain.ActivityPasswordChange})
	s.log.Info().Int64("user_id", id.UserID).Msg("password changed")
	return nil
}

func (s *AuthService) record(a domain.Activity) {
	if s.activity == nil {
		return
	}
	a.At = time.Now().UTC()
	s.activity.Record(a)
}
