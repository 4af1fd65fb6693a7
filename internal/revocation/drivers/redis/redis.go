// Package redis provides the revocation gateway used in multi-node
// deployments. Records are plain keys with a TTL, so expiry is redis's
// problem and the sweeper has nothing to do here.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shopforge/tokengate/internal/revocation"
)

const defaultKeyPrefix = "tokengate:revoked:"

type Config struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces revocation keys. Defaults to "tokengate:revoked:".
	KeyPrefix string
}

type Gateway struct {
	client *goredis.Client
	prefix string
}

// New connects to redis and verifies the connection before returning.
// A gateway that cannot reach its backend should fail at startup, not on
// the first rejected token.
func New(cfg Config) (*Gateway, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Gateway{client: client, prefix: prefix}, nil
}

// NewWithClient wraps an existing client. Used by tests running against
// miniredis.
func NewWithClient(client *goredis.Client, keyPrefix string) *Gateway {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Gateway{client: client, prefix: keyPrefix}
}

// Revoke stores the record under its token id with a TTL running to the
// record's expiry. SETNX keeps the first reason when the same token gets
// revoked twice.
func (g *Gateway) Revoke(ctx context.Context, rec revocation.Record) error {
	if rec.TokenID == "" {
		return revocation.ErrEmptyTokenID
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		// Past its own maximum lifetime; timing validation already rejects
		// it, nothing worth storing.
		return nil
	}

	if err := g.client.SetNX(ctx, g.prefix+rec.TokenID, rec.Reason, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke %s: %w", rec.TokenID, err)
	}
	return nil
}

// IsRevoked checks for a live record. Expired keys are gone by then, so a
// bare EXISTS is the whole query.
func (g *Gateway) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, revocation.ErrEmptyTokenID
	}

	n, err := g.client.Exists(ctx, g.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: lookup %s: %w", tokenID, err)
	}
	return n > 0, nil
}

func (g *Gateway) Close() error { return g.client.Close() }
