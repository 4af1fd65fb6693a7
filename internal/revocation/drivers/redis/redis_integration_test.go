//go:build integration
// +build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shopforge/tokengate/internal/revocation"
	rdriver "github.com/shopforge/tokengate/internal/revocation/drivers/redis"
)

// setupRedisContainer starts a real redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestGatewayAgainstRealRedis(t *testing.T) {
	ctx := context.Background()

	gw, err := rdriver.New(rdriver.Config{Addr: setupRedisContainer(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	now := time.Now().UTC()
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-int-1", "invalid audience", now, time.Hour)))

	revoked, err := gw.IsRevoked(ctx, "jti-int-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = gw.IsRevoked(ctx, "jti-int-2")
	require.NoError(t, err)
	require.False(t, revoked)

	// Double revocation stays a single live record with the first reason.
	require.NoError(t, gw.Revoke(ctx, revocation.NewRecord("jti-int-1", "expired", now, time.Hour)))
	revoked, err = gw.IsRevoked(ctx, "jti-int-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestConnectFailureSurfacesAtConstruction(t *testing.T) {
	_, err := rdriver.New(rdriver.Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
