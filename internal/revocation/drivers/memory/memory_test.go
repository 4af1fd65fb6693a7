package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopforge/tokengate/internal/revocation"
	"github.com/shopforge/tokengate/internal/revocation/drivers/memory"
	"github.com/stretchr/testify/require"
)

func TestRevokeAndLookup(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	now := time.Now().UTC()

	rec := revocation.NewRecord("jti-1", "missing claim: aud", now, time.Hour)
	require.NoError(t, gw.Revoke(ctx, rec))

	revoked, err := gw.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = gw.IsRevoked(ctx, "jti-other")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	now := time.Now().UTC()

	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-1", "expired", now, time.Hour)))
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-1", "invalid issuer", now, time.Hour)))

	require.Equal(t, 1, gw.Len())
}

func TestExpiredRecordIsNotRevoked(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()

	// Lifetime already over when the lookup happens.
	past := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-1", "expired", past, time.Hour)))

	revoked, err := gw.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	now := time.Now().UTC()

	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-old", "expired", now.Add(-2*time.Hour), time.Hour)))
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-live", "expired", now, time.Hour)))
	require.Equal(t, 2, gw.Len())

	require.NoError(t, gw.DeleteExpired(ctx, now))
	require.Equal(t, 1, gw.Len())

	revoked, err := gw.IsRevoked(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestEmptyTokenID(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()

	err := gw.Revoke(ctx, revocation.Record{})
	require.ErrorIs(t, err, revocation.ErrEmptyTokenID)

	_, err = gw.IsRevoked(ctx, "")
	require.ErrorIs(t, err, revocation.ErrEmptyTokenID)
}
