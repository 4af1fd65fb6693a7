package pasetox_test

import (
	"testing"
	"time"

	"github.com/shopforge/tokengate/pkg/pasetox"
	"github.com/stretchr/testify/require"
)

func TestParseClaims(t *testing.T) {
	t.Run("mixed kinds", func(t *testing.T) {
		c, err := pasetox.ParseClaims([]byte(`{
			"sub": "user_12",
			"exp": "2026-09-01T10:00:00Z",
			"version": 3
		}`))
		require.NoError(t, err)
		require.Equal(t, 3, c.Len())

		sub, err := c.String("sub")
		require.NoError(t, err)
		require.Equal(t, "user_12", sub)

		exp, err := c.Time("exp")
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), exp)

		version, err := c.Int("version")
		require.NoError(t, err)
		require.EqualValues(t, 3, version)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := pasetox.ParseClaims(nil)
		require.ErrorIs(t, err, pasetox.ErrEmptyPayload)

		_, err = pasetox.ParseClaims([]byte("  \n"))
		require.ErrorIs(t, err, pasetox.ErrEmptyPayload)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := pasetox.ParseClaims([]byte(`{"sub":`))
		require.ErrorIs(t, err, pasetox.ErrClaims)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := pasetox.ParseClaims([]byte(`["sub"]`))
		require.ErrorIs(t, err, pasetox.ErrClaims)
	})

	t.Run("boolean value rejected", func(t *testing.T) {
		_, err := pasetox.ParseClaims([]byte(`{"admin": true}`))
		require.ErrorIs(t, err, pasetox.ErrClaims)
	})

	t.Run("nested object rejected", func(t *testing.T) {
		_, err := pasetox.ParseClaims([]byte(`{"meta": {"a": 1}}`))
		require.ErrorIs(t, err, pasetox.ErrClaims)
	})

	t.Run("fractional number rejected", func(t *testing.T) {
		_, err := pasetox.ParseClaims([]byte(`{"ratio": 1.5}`))
		require.ErrorIs(t, err, pasetox.ErrClaims)
	})

	t.Run("trailing data rejected", func(t *testing.T) {
		_, err := pasetox.ParseClaims([]byte(`{"sub":"a"} {"sub":"b"}`))
		require.ErrorIs(t, err, pasetox.ErrClaims)
	})
}

func TestValueAccessors(t *testing.T) {
	c, err := pasetox.ParseClaims([]byte(`{"sub":"user_1","exp":"2026-09-01T10:00:00Z","n":7}`))
	require.NoError(t, err)

	t.Run("kind mismatch fails", func(t *testing.T) {
		_, err := c.String("exp")
		require.ErrorIs(t, err, pasetox.ErrClaimType)

		_, err = c.Time("sub")
		require.ErrorIs(t, err, pasetox.ErrClaimType)

		_, err = c.Int("sub")
		require.ErrorIs(t, err, pasetox.ErrClaimType)
	})

	t.Run("missing claim", func(t *testing.T) {
		_, err := c.String("aud")
		require.ErrorIs(t, err, pasetox.ErrClaimMissing)
		require.False(t, c.Has("aud"))
	})

	t.Run("rfc3339 string is a timestamp", func(t *testing.T) {
		v, ok := c.Get("exp")
		require.True(t, ok)
		require.Equal(t, pasetox.KindTime, v.Kind())
	})

	t.Run("names sorted", func(t *testing.T) {
		require.Equal(t, []string{"exp", "n", "sub"}, c.Names())
	})
}

func TestClaimsClone(t *testing.T) {
	src := map[string]pasetox.Value{
		"sub": pasetox.StringValue("user_1"),
	}
	c := pasetox.NewClaims(src)

	// Mutating the source map after construction must not leak through.
	src["sub"] = pasetox.StringValue("user_2")
	got, err := c.String("sub")
	require.NoError(t, err)
	require.Equal(t, "user_1", got)

	clone := c.Clone()
	require.Equal(t, c.Names(), clone.Names())

	cloned, err := clone.String("sub")
	require.NoError(t, err)
	require.Equal(t, "user_1", cloned)
}
