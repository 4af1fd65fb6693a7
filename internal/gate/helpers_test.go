package gate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopforge/tokengate/internal/revocation"
	"github.com/shopforge/tokengate/internal/revocation/drivers/memory"
	"github.com/shopforge/tokengate/pkg/idx"
	"github.com/shopforge/tokengate/pkg/pasetox"
)

const (
	testIssuer     = "https://auth.shopforge.dev"
	testAudience   = "shopforge-api"
	testPublicKID  = "access-pub-v1"
	testAccessKID  = "access-loc-v1"
	testRefreshKID = "refresh-loc-v1"
)

// fixture wires an engine against in-memory collaborators, fresh key
// material and a fixed clock. Tests mutate fields before calling engine.
type fixture struct {
	cfg Config

	pub        ed25519.PublicKey
	priv       ed25519.PrivateKey
	accessKey  []byte
	refreshKey []byte

	subjectID string
	subjects  *StaticDirectory
	dir       Directory
	session   SessionContext
	gateway   *recordingGateway
	crypto    *countingCrypto
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	accessKey := make([]byte, pasetox.LocalKeySize)
	_, err = rand.Read(accessKey)
	require.NoError(t, err)
	refreshKey := make([]byte, pasetox.LocalKeySize)
	_, err = rand.Read(refreshKey)
	require.NoError(t, err)

	subjectID := idx.New().String()
	subjects := &StaticDirectory{Subjects: map[string]Subject{
		subjectID: {ID: subjectID, Enabled: true, Roles: []string{"orders:read", "orders:write"}},
	}}

	return &fixture{
		cfg: Config{
			Issuer:          testIssuer,
			Audience:        testAudience,
			PublicAccessKID: testPublicKID,
			LocalAccessKID:  testAccessKID,
			LocalRefreshKID: testRefreshKID,
			ClockSkew:       30 * time.Second,
		},
		pub:        pub,
		priv:       priv,
		accessKey:  accessKey,
		refreshKey: refreshKey,
		subjectID:  subjectID,
		subjects:   subjects,
		dir:        subjects,
		session:    StaticSession{SessionID: subjectID, PrincipalID: subjectID},
		gateway:    newRecordingGateway(),
		crypto:     &countingCrypto{},
		// Second-aligned so RFC 3339 round-trips keep boundary arithmetic
		// exact, and near wall time so revocation records stay live.
		now: time.Now().UTC().Truncate(time.Second),
	}
}

func (f *fixture) engine(t *testing.T) *Engine {
	t.Helper()
	keys, err := NewStaticKeyring(f.pub, f.accessKey, f.refreshKey)
	require.NoError(t, err)
	e, err := New(f.cfg, Deps{
		Keys:      keys,
		Directory: f.dir,
		Session:   f.session,
		Gateway:   f.gateway,
		Crypto:    f.crypto,
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return e
}

// accessClaims returns a complete, currently-valid access claim set.
func (f *fixture) accessClaims() map[string]any {
	return map[string]any{
		"iss":   testIssuer,
		"sub":   f.subjectID,
		"aud":   testAudience,
		"exp":   f.now.Add(10 * time.Minute).Format(time.RFC3339),
		"nbf":   f.now.Add(-time.Minute).Format(time.RFC3339),
		"iat":   f.now.Add(-time.Minute).Format(time.RFC3339),
		"jti":   idx.New().String(),
		"scope": "orders:read",
		"type":  TypeAccess,
	}
}

func (f *fixture) refreshClaims() map[string]any {
	c := f.accessClaims()
	delete(c, "scope")
	c["type"] = TypeRefresh
	return c
}

func (f *fixture) mintLocalAccess(t *testing.T, claims map[string]any) string {
	t.Helper()
	return mintLocal(t, f.accessKey, testAccessKID, mustJSON(t, claims))
}

func (f *fixture) mintLocalRefresh(t *testing.T, claims map[string]any) string {
	t.Helper()
	return mintLocal(t, f.refreshKey, testRefreshKID, mustJSON(t, claims))
}

func (f *fixture) mintPublicAccess(t *testing.T, claims map[string]any) string {
	t.Helper()
	footer, err := pasetox.EncodeFooter(pasetox.Footer{KID: testPublicKID})
	require.NoError(t, err)
	tok, err := pasetox.SignPublic(f.priv, mustJSON(t, claims), footer)
	require.NoError(t, err)
	return tok
}

func mintLocal(t *testing.T, key []byte, kid string, payload []byte) string {
	t.Helper()
	footer, err := pasetox.EncodeFooter(pasetox.Footer{KID: kid})
	require.NoError(t, err)
	return mintLocalFooter(t, key, payload, footer)
}

func mintLocalFooter(t *testing.T, key, payload, footer []byte) string {
	t.Helper()
	tok, err := pasetox.EncryptLocal(key, payload, footer)
	require.NoError(t, err)
	return tok
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// newRecordFor seeds a revocation record the way the engine would write it.
func newRecordFor(tokenID, reason string, now time.Time) revocation.Record {
	return revocation.NewRecord(tokenID, reason, now, time.Hour)
}

// requireKind asserts the error is a ValidationError of the given kind.
func requireKind(t *testing.T, err error, kind Kind) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, kind, ve.Kind, "unexpected failure kind: %v", err)
	return ve
}

// countingCrypto wraps the real codec and counts invocations, proving
// structural rejections never reach cryptography.
type countingCrypto struct {
	mu       sync.Mutex
	verifies int
	decrypts int
}

func (c *countingCrypto) VerifyPublic(t pasetox.Token, pub ed25519.PublicKey) ([]byte, error) {
	c.mu.Lock()
	c.verifies++
	c.mu.Unlock()
	return pasetox.VerifyPublic(t, pub)
}

func (c *countingCrypto) DecryptLocal(t pasetox.Token, key []byte) ([]byte, error) {
	c.mu.Lock()
	c.decrypts++
	c.mu.Unlock()
	return pasetox.DecryptLocal(t, key)
}

func (c *countingCrypto) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifies + c.decrypts
}

// recordingGateway keeps every successful write and delegates storage to
// the memory driver. Error fields force gateway failures.
type recordingGateway struct {
	mu        sync.Mutex
	inner     *memory.Gateway
	writes    []revocation.Record
	revokeErr error
	lookupErr error
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{inner: memory.New()}
}

func (g *recordingGateway) Revoke(ctx context.Context, rec revocation.Record) error {
	g.mu.Lock()
	if err := g.revokeErr; err != nil {
		g.mu.Unlock()
		return err
	}
	g.writes = append(g.writes, rec)
	g.mu.Unlock()
	return g.inner.Revoke(ctx, rec)
}

func (g *recordingGateway) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	g.mu.Lock()
	err := g.lookupErr
	g.mu.Unlock()
	if err != nil {
		return false, err
	}
	return g.inner.IsRevoked(ctx, tokenID)
}

func (g *recordingGateway) Close() error { return g.inner.Close() }

func (g *recordingGateway) written() []revocation.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]revocation.Record(nil), g.writes...)
}

// blockingDirectory parks every lookup until release is closed, so tests
// can hold permits open deliberately.
type blockingDirectory struct {
	subject Subject
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDirectory) Lookup(ctx context.Context, _ string) (Subject, error) {
	d.entered <- struct{}{}
	select {
	case <-d.release:
		return d.subject, nil
	case <-ctx.Done():
		return Subject{}, ctx.Err()
	}
}

type failingDirectory struct{ err error }

func (d failingDirectory) Lookup(context.Context, string) (Subject, error) {
	return Subject{}, d.err
}
