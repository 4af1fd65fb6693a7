// Package sqlite provides a revocation gateway backed by a local sqlite
// database. Suited to single-node deployments that want revocations to
// survive a restart without running redis.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopforge/tokengate/internal/revocation"

	_ "modernc.org/sqlite"
)

type Gateway struct {
	db  *sql.DB
	dsn string
}

func New(dsn string) (*Gateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection; a second pooled
	// connection would see a fresh empty schema.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Gateway{db: db, dsn: dsn}, nil
}

func (g *Gateway) Close() error { return g.db.Close() }

// Ping verifies the database connection is still alive.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Revoke inserts the record. The UNIQUE constraint on token_id plus
// OR IGNORE makes the write idempotent with the first reason kept.
func (g *Gateway) Revoke(ctx context.Context, rec revocation.Record) error {
	if rec.TokenID == "" {
		return revocation.ErrEmptyTokenID
	}

	_, err := g.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO revoked_tokens (id, token_id, reason, revoked_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.TokenID, rec.Reason, rec.RevokedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoke %s: %w", rec.TokenID, err)
	}
	return nil
}

// IsRevoked reports whether a live record exists for the token id. The
// comparison time is bound as a parameter so both sides go through the
// driver's timestamp formatting.
func (g *Gateway) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, revocation.ErrEmptyTokenID
	}

	var exists bool
	err := g.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM revoked_tokens
			WHERE token_id = ? AND expires_at > ?
		)`,
		tokenID, time.Now().UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: lookup %s: %w", tokenID, err)
	}
	return exists, nil
}

// DeleteExpired removes records whose lifetime has passed. Called by the
// sweeper.
func (g *Gateway) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := g.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return fmt.Errorf("sqlite: purge expired: %w", err)
	}
	return nil
}
