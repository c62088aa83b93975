package octopus

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	tokenKey        = "octopus:kraken:token"
	defaultTokenTTL = 45 * time.Minute
	tokenTTLMargin  = time.Minute
)

// TokenStore holds the Kraken token between calls. Token state lives outside
// the clients so concurrent processes (server and cron import) share one
// token instead of each holding a private copy.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, ttl time.Duration) error
}

// RedisTokenStore keeps the token in redis with the token's own expiry.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore builds a redis-backed store.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// Load returns the cached token, or empty when absent.
func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Save stores the token for ttl.
func (s *RedisTokenStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey, token, ttl).Err()
}

// MemoryTokenStore is the fallback when no redis is configured, scoped to a
// single process.
type MemoryTokenStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewMemoryTokenStore builds an in-process store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the token unless it has expired.
func (s *MemoryTokenStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || time.Now().After(s.expires) {
		return "", nil
	}
	return s.token, nil
}

// Save stores the token for ttl.
func (s *MemoryTokenStore) Save(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expires = time.Now().Add(ttl)
	return nil
}

// tokenTTL derives a cache TTL from the Kraken token's own exp claim, with a
// safety margin so a cached token is never presented right at its expiry.
// The signature is not verified here; the provider verifies it on use.
func tokenTTL(token string) time.Duration {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return defaultTokenTTL
	}
	expires, err := parsed.Claims.GetExpirationTime()
	if err != nil || expires == nil {
		return defaultTokenTTL
	}
	ttl := time.Until(expires.Time) - tokenTTLMargin
	if ttl <= 0 {
		return defaultTokenTTL
	}
	return ttl
}
