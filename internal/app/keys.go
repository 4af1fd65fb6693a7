package app

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/shopforge/tokengate/internal/gate"
)

// loadKeyring decodes the configured key material into a static keyring.
// Each slot accepts either an inline base64 value or a file holding one;
// slots left empty surface as ErrNoKey when a path needs them.
func loadKeyring(cfg Config) (*gate.StaticKeyring, error) {
	accessPublic, err := loadKeyMaterial(cfg.AccessPublicKey, cfg.AccessPublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("access public key: %w", err)
	}
	accessSecret, err := loadKeyMaterial(cfg.AccessSecretKey, cfg.AccessSecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("access secret key: %w", err)
	}
	refreshSecret, err := loadKeyMaterial(cfg.RefreshSecretKey, cfg.RefreshSecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("refresh secret key: %w", err)
	}

	var pub ed25519.PublicKey
	if accessPublic != nil {
		pub = ed25519.PublicKey(accessPublic)
	}

	return gate.NewStaticKeyring(pub, accessSecret, refreshSecret)
}

func loadKeyMaterial(inline, file string) ([]byte, error) {
	encoded := inline
	if encoded == "" && file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		encoded = string(data)
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key material: %w", err)
	}
	return key, nil
}
