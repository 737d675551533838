package repository

import (
	"context"
	"encoding/json"
	"errors"
	"showings/pkg/logger"
	"showings/pkg/sealer"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	tokenKeyPrefix = "showings:calendar-token:"
	tokenOpTimeout = 500 * time.Millisecond
	// expiryMargin keeps a cached token from being handed out just before it expires.
	expiryMargin = time.Minute
)

// TokenCache holds short-lived access tokens so replicas do not refresh the same owner
// over and over. A miss is always safe.
type TokenCache interface {
	Get(ctx context.Context, ownerID string) (*oauth2.Token, bool)
	Set(ctx context.Context, ownerID string, token *oauth2.Token)
	Delete(ctx context.Context, ownerID string)
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Expiry      time.Time `json:"expiry"`
}

type redisTokenCache struct {
	client *redis.Client
	sealer *sealer.Sealer
	log    *logger.Logger
}

func NewRedisTokenCache(client *redis.Client, s *sealer.Sealer, log *logger.Logger) TokenCache {
	return &redisTokenCache{client: client, sealer: s, log: log}
}

func (c *redisTokenCache) Get(ctx context.Context, ownerID string) (*oauth2.Token, bool) {
	ctx, cancel := context.WithTimeout(ctx, tokenOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, tokenKeyPrefix+ownerID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Token cache read failed", "owner_id", ownerID, "error", err)
		}
		return nil, false
	}

	plain, err := c.sealer.Open(raw)
	if err != nil {
		return nil, false
	}
	var cached cachedToken
	if err := json.Unmarshal([]byte(plain), &cached); err != nil {
		return nil, false
	}
	return &oauth2.Token{
		AccessToken: cached.AccessToken,
		TokenType:   cached.TokenType,
		Expiry:      cached.Expiry,
	}, true
}

func (c *redisTokenCache) Set(ctx context.Context, ownerID string, token *oauth2.Token) {
	ttl := time.Until(token.Expiry) - expiryMargin
	if token.AccessToken == "" || ttl <= 0 {
		return
	}

	raw, err := json.Marshal(cachedToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	})
	if err != nil {
		return
	}
	sealed, err := c.sealer.Seal(string(raw))
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, tokenOpTimeout)
	defer cancel()
	if err := c.client.Set(ctx, tokenKeyPrefix+ownerID, sealed, ttl).Err(); err != nil {
		c.log.Warn("Token cache write failed", "owner_id", ownerID, "error", err)
	}
}

func (c *redisTokenCache) Delete(ctx context.Context, ownerID string) {
	ctx, cancel := context.WithTimeout(ctx, tokenOpTimeout)
	defer cancel()
	if err := c.client.Del(ctx, tokenKeyPrefix+ownerID).Err(); err != nil {
		c.log.Warn("Token cache delete failed", "owner_id", ownerID, "error", err)
	}
}

type noopTokenCache struct{}

// NoopTokenCache is used when Redis is not configured.
func NoopTokenCache() TokenCache { return noopTokenCache{} }

func (noopTokenCache) Get(context.Context, string) (*oauth2.Token, bool) { return nil, false }
func (noopTokenCache) Set(context.Context, string, *oauth2.Token)        {}
func (noopTokenCache) Delete(context.Context, string)                    {}
