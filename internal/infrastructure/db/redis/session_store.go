package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in Redis hashes that expire with the session.
// Key format: session:<id>
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

const (
	fieldUserID   = "user_id"
	fieldUsername = "username"
	fieldMessage  = "message"
)

// Save writes the session and sets its expiry in one round trip.
func (s *SessionStore) Save(ctx context.Context, sess domain.Session, ttl time.Duration) error {
	key := s.key(sess.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldUserID, strconv.FormatInt(sess.UserID, 10),
			fieldUsername, sess.Username,
			fieldMessage, sess.Message,
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	vals, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrNoSession
	}

	userID, err := strconv.ParseInt(vals[fieldUserID], 10, 64)
	if err != nil {
		return nil, domain.ErrNoSession
	}
	return &domain.Session{
		ID:       id,
		UserID:   userID,
		Username: vals[fieldUsername],
		Message:  vals[fieldMessage],
	}, nil
}

// setMessageScript writes the message only when the session hash still
// exists, so an expired session is never recreated without a TTL.
var setMessageScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// SetMessage only touches live sessions; an expired one is not resurrected.
func (s *SessionStore) SetMessage(ctx context.Context, id, message string) error {
	n, err := setMessageScript.Run(ctx, s.client, []string{s.key(id)}, fieldMessage, message).Int()
	if err != nil {
		return fmt.Errorf("set session message: %w", err)
	}
	if n == 0 {
		return domain.ErrNoSession
	}
	return nil
}

// PopMessage reads and clears the message inside MULTI/EXEC.
func (s *SessionStore) PopMessage(ctx context.Context, id string) (string, error) {
	key := s.key(id)
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, key, fieldMessage)
		pipe.HDel(ctx, key, fieldMessage)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("pop session message: %w", err)
	}
	msg, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return msg, err
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(id string) string {
	return "session:" + id
}
