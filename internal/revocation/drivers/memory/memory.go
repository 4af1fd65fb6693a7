// Package memory provides an in-process revocation gateway. It backs tests
// and single-node deployments where standing up redis or a database file is
// overkill; records vanish with the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopforge/tokengate/internal/revocation"
)

type Gateway struct {
	mu      sync.RWMutex
	records map[string]revocation.Record
}

func New() *Gateway {
	return &Gateway{records: make(map[string]revocation.Record)}
}

// Revoke stores the record. First record for a token id wins.
func (g *Gateway) Revoke(_ context.Context, rec revocation.Record) error {
	if rec.TokenID == "" {
		return revocation.ErrEmptyTokenID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.records[rec.TokenID]; exists {
		return nil
	}
	g.records[rec.TokenID] = rec
	return nil
}

// IsRevoked reports whether a live record exists for the token id.
func (g *Gateway) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, revocation.ErrEmptyTokenID
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	rec, ok := g.records[tokenID]
	if !ok {
		return false, nil
	}
	return time.Now().UTC().Before(rec.ExpiresAt), nil
}

// DeleteExpired drops records whose lifetime has passed.
func (g *Gateway) DeleteExpired(_ context.Context, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, rec := range g.records {
		if !rec.ExpiresAt.After(now) {
			delete(g.records, id)
		}
	}
	return nil
}

// Len reports the number of stored records, expired or not. Test helper.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

func (g *Gateway) Close() error { return nil }
