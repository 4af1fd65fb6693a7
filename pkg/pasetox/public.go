package pasetox

import (
	"crypto/ed25519"
	"fmt"
)

// SignPublic mints a v2.public token. The payload segment is the claims
// message with the Ed25519 signature appended; the signature covers
// pae(header, message, footer) so the footer cannot be replaced without
// breaking verification.
func SignPublic(priv ed25519.PrivateKey, message, footer []byte) (string, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: need %d bytes, got %d", ErrKeySize, ed25519.PrivateKeySize, len(priv))
	}

	sig := ed25519.Sign(priv, pae([]byte(headerPublic), message, footer))

	body := make([]byte, 0, len(message)+len(sig))
	body = append(body, message...)
	body = append(body, sig...)

	return headerPublic + b64.EncodeToString(body) + "." + b64.EncodeToString(footer), nil
}

// VerifyPublic checks a v2.public token's signature and returns the claims
// message. A failure here means the token was not produced with the matching
// private key, full stop. There is nothing to retry.
func VerifyPublic(t Token, pub ed25519.PublicKey) ([]byte, error) {
	if t.purpose != PurposePublic {
		return nil, fmt.Errorf("%w: not a public token", ErrUnsupported)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrKeySize, ed25519.PublicKeySize, len(pub))
	}
	if len(t.payload) < ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: payload shorter than a signature", ErrMalformed)
	}

	split := len(t.payload) - ed25519.SignatureSize
	message, sig := t.payload[:split], t.payload[split:]

	if !ed25519.Verify(pub, pae([]byte(headerPublic), message, t.footer), sig) {
		return nil, ErrInvalidSig
	}

	out := make([]byte, len(message))
	copy(out, message)
	return out, nil
}
