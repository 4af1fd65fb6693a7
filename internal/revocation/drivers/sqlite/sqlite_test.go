package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopforge/tokengate/internal/revocation"
	"github.com/shopforge/tokengate/internal/revocation/drivers/sqlite"
)

func newTestGateway(t *testing.T) *sqlite.Gateway {
	t.Helper()

	gw, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	require.NoError(t, gw.ApplyMigrations())
	return gw
}

func TestMigrationsAreIdempotent(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.ApplyMigrations())
	require.NoError(t, gw.Ping(context.Background()))
}

func TestRevokeAndLookup(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	now := time.Now().UTC()

	rec := revocation.NewRecord("jti-1", "session mismatch", now, time.Hour)
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
	gw := newTestGateway(t)
	now := time.Now().UTC()

	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-1", "expired", now, time.Hour)))
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-1", "invalid issuer", now, time.Hour)))

	revoked, err := gw.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestExpiredRecordIsNotRevoked(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)

	past := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-1", "expired", past, time.Hour)))

	revoked, err := gw.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	now := time.Now().UTC()

	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-old", "expired", now.Add(-2*time.Hour), time.Hour)))
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-live", "expired", now, time.Hour)))

	require.NoError(t, gw.DeleteExpired(ctx, now))

	revoked, err := gw.IsRevoked(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, revoked)

	// Purged record no longer counts, even with a lookup time before its
	// original expiry.
	revoked, err = gw.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestEmptyTokenID(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)

	err := gw.Revoke(ctx, revocation.Record{})
	require.ErrorIs(t, err, revocation.ErrEmptyTokenID)

	_, err = gw.IsRevoked(ctx, "")
	require.ErrorIs(t, err, revocation.ErrEmptyTokenID)
}
