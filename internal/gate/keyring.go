package gate

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/shopforge/tokengate/pkg/pasetox"
)

// ErrNoKey is returned by a Keyring when it holds no material for the
// requested path.
var ErrNoKey = errors.New("gate: no key material for path")

// Keyring hands the engine the key material for each validation path.
// Public-access tokens verify against an Ed25519 public key; the two local
// paths decrypt with symmetric secrets.
type Keyring interface {
	PublicKey(path Path) (ed25519.PublicKey, error)
	SecretKey(path Path) ([]byte, error)
}

// StaticKeyring is a fixed in-memory Keyring, suitable for configuration
// loaded once at startup.
type StaticKeyring struct {
	AccessPublic  ed25519.PublicKey
	AccessSecret  []byte
	RefreshSecret []byte
}

// NewStaticKeyring validates key sizes up front so misconfiguration fails
// at startup rather than on the first token.
func NewStaticKeyring(accessPublic ed25519.PublicKey, accessSecret, refreshSecret []byte) (*StaticKeyring, error) {
	if len(accessPublic) != 0 && len(accessPublic) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("gate: access public key must be %d bytes, got %d", ed25519.PublicKeySize, len(accessPublic))
	}
	if len(accessSecret) != 0 && len(accessSecret) != pasetox.LocalKeySize {
		return nil, fmt.Errorf("gate: access secret key must be %d bytes, got %d", pasetox.LocalKeySize, len(accessSecret))
	}
	if len(refreshSecret) != 0 && len(refreshSecret) != pasetox.LocalKeySize {
		return nil, fmt.Errorf("gate: refresh secret key must be %d bytes, got %d", pasetox.LocalKeySize, len(refreshSecret))
	}
	return &StaticKeyring{
		AccessPublic:  accessPublic,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
	}, nil
}

func (k *StaticKeyring) PublicKey(path Path) (ed25519.PublicKey, error) {
	if path != PathPublicAccess || len(k.AccessPublic) == 0 {
		return nil, ErrNoKey
	}
	return k.AccessPublic, nil
}

func (k *StaticKeyring) SecretKey(path Path) ([]byte, error) {
	switch path {
	case PathLocalAccess:
		if len(k.AccessSecret) == 0 {
			return nil, ErrNoKey
		}
		return k.AccessSecret, nil
	case PathLocalRefresh:
		if len(k.RefreshSecret) == 0 {
			return nil, ErrNoKey
		}
		return k.RefreshSecret, nil
	default:
		return nil, ErrNoKey
	}
}
