// Package revocation defines the gateway the validation engine uses to
// record and look up revoked tokens. Concrete drivers (redis, sqlite,
// memory) live under drivers/.
package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/shopforge/tokengate/pkg/idx"
)

var (
	// ErrEmptyTokenID rejects calls without a token id. A revocation keyed
	// on the empty string would match nothing and purge never.
	ErrEmptyTokenID = errors.New("revocation: empty token id")
)

// Record is one revoked token. ExpiresAt is the moment the record stops
// mattering: a token past its own maximum lifetime is rejected on timing
// alone, so drivers are free to drop the record then.
type Record struct {
	ID        idx.ID
	TokenID   string
	Reason    string
	RevokedAt time.Time
	ExpiresAt time.Time
}

// NewRecord stamps a record for a token seen misbehaving now, valid until
// the configured maximum token lifetime has passed.
func NewRecord(tokenID, reason string, now time.Time, ttl time.Duration) Record {
	return Record{
		ID:        idx.New(),
		TokenID:   tokenID,
		Reason:    reason,
		RevokedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Gateway is the revocation backend contract. Drivers must make Revoke
// idempotent: the first record for a token id wins and later writes for the
// same id are silently ignored, so re-validating a bad token any number of
// times leaves one record behind.
type Gateway interface {
	// Revoke stores the record. Writing an already-revoked token id is not
	// an error.
	Revoke(ctx context.Context, rec Record) error

	// IsRevoked reports whether a live (non-expired) record exists for the
	// token id.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// Purger is implemented by gateways whose backing store does not expire
// records on its own (sqlite, memory). Redis handles TTLs natively and
// doesn't need it.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) error
}
