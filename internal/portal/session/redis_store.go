package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "portal:session:"

// RedisStore keeps sessions in Redis. The cookie carries only a random
// session id.
type RedisStore struct {
	Client     redis.UniversalClient
	CookieName string
	Prefix     string
	Secure     bool
	Now        func() time.Time
}

func NewRedisStore(client redis.UniversalClient, cookieName string, secure bool) *RedisStore {
	return &RedisStore{
		Client:     client,
		CookieName: cookieName,
		Prefix:     DefaultRedisPrefix,
		Secure:     secure,
		Now:        time.Now,
	}
}

func (s *RedisStore) key(id string) string { return s.Prefix + id }

func (s *RedisStore) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return id.String(), nil
}

func (s *RedisStore) Load(r *http.Request) (*Session, error) {
	id, err := s.sessionID(r)
	if err != nil {
		return nil, err
	}

	data, err := s.Client.Get(r.Context(), s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	sess.ID = id
	sess.Source = SourceStore
	return &sess, nil
}

// Save writes s with a TTL running to its ceiling. A session without an ID
// gets a fresh one, so a new login never reuses an old id.
func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	now := s.Now()
	ttl := sess.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return s.Clear(w, r)
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.Client.Set(r.Context(), s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	writeCookie(w, s.CookieName, sess.ID, s.Secure, sess.ExpiresAt, now)
	return nil
}

func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	defer expireCookie(w, s.CookieName, s.Secure, http.SameSiteLaxMode)

	id, err := s.sessionID(r)
	if err != nil {
		return nil
	}
	if err := s.Client.Del(r.Context(), s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
