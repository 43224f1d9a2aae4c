package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/session"
)

// Store keeps the terminal session in Redis so it survives a restart of the
// terminal process. The user key expires with the access token.
type Store struct {
	client   *goredis.Client
	userKey  string
	shiftKey string
}

func New(addr string, password string, db int, terminalID string) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(client, terminalID)
}

func NewWithClient(client *goredis.Client, terminalID string) *Store {
	return &Store{
		client:   client,
		userKey:  session.Key(terminalID, "user"),
		shiftKey: session.Key(terminalID, "shift"),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) User(ctx context.Context) (domain.SessionUser, bool, error) {
	var user domain.SessionUser
	ok, err := s.get(ctx, s.userKey, &user)
	return user, ok, err
}

func (s *Store) SaveUser(ctx context.Context, user domain.SessionUser) error {
	var ttl time.Duration
	if !user.ExpiresAt.IsZero() {
		ttl = time.Until(user.ExpiresAt)
		if ttl <= 0 {
			return s.client.Del(ctx, s.userKey).Err()
		}
	}
	return s.set(ctx, s.userKey, user, ttl)
}

func (s *Store) Shift(ctx context.Context) (domain.ShiftSnapshot, bool, error) {
	var snap domain.ShiftSnapshot
	ok, err := s.get(ctx, s.shiftKey, &snap)
	return snap, ok, err
}

func (s *Store) SaveShift(ctx context.Context, snap domain.ShiftSnapshot) error {
	return s.set(ctx, s.shiftKey, snap, 0)
}

func (s *Store) ClearShift(ctx context.Context) error {
	return s.client.Del(ctx, s.shiftKey).Err()
}

func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.userKey, s.shiftKey).Err()
}

func (s *Store) get(ctx context.Context, key string, out any) (bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}
