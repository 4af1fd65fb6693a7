package gate

import (
	"crypto/ed25519"

	"github.com/shopforge/tokengate/pkg/pasetox"
)

// CryptoProvider performs the two cryptographic operations the engine
// needs. It exists as a seam: structural rejections must short-circuit
// before any cryptography runs, and a counting provider in tests proves
// they do.
type CryptoProvider interface {
	VerifyPublic(t pasetox.Token, pub ed25519.PublicKey) ([]byte, error)
	DecryptLocal(t pasetox.Token, key []byte) ([]byte, error)
}

// codecProvider is the production provider, a thin veneer over pasetox.
type codecProvider struct{}

func (codecProvider) VerifyPublic(t pasetox.Token, pub ed25519.PublicKey) ([]byte, error) {
	return pasetox.VerifyPublic(t, pub)
}

func (codecProvider) DecryptLocal(t pasetox.Token, key []byte) ([]byte, error) {
	return pasetox.DecryptLocal(t, key)
}
