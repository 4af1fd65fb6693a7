// Package pasetox implements the v2 PASETO token formats used by the
// storefront for bearer credentials: v2.public (Ed25519 signatures) and
// v2.local (XChaCha20-Poly1305 authenticated encryption). Only tokens with
// an explicit footer are accepted, since the footer carries the key id.
//
// The package is a pure codec. It knows how to parse, verify, decrypt and
// mint tokens, but has no opinion on claims policy. That lives in the
// validation engine.
package pasetox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Purpose identifies which v2 flavour a token uses.
type Purpose string

const (
	// PurposeLocal marks symmetric, encrypted tokens (v2.local).
	PurposeLocal Purpose = "local"
	// PurposePublic marks asymmetric, signed tokens (v2.public).
	PurposePublic Purpose = "public"
)

const (
	headerLocal  = "v2.local."
	headerPublic = "v2.public."
)

var (
	ErrMalformed   = errors.New("pasetox: malformed token")
	ErrUnsupported = errors.New("pasetox: unsupported protocol")
	ErrInvalidSig  = errors.New("pasetox: invalid signature")
	ErrDecrypt     = errors.New("pasetox: decryption failed")
	ErrFooter      = errors.New("pasetox: invalid footer")
	ErrKeySize     = errors.New("pasetox: wrong key size")
)

// b64 is the PASETO segment encoding: base64url without padding.
var b64 = base64.RawURLEncoding

// Token is a structurally valid v2 token. Parse is the only way to obtain
// one, so holding a Token means the four-segment shape and segment encoding
// already checked out. Nothing cryptographic has been proven yet.
type Token struct {
	purpose Purpose
	header  string
	payload []byte
	footer  []byte
}

// Parse splits a raw token into its four segments and decodes them.
// It performs no cryptography at all, so it is safe to call on completely
// untrusted input before any key material is touched.
func Parse(raw string) (Token, error) {
	if strings.TrimSpace(raw) == "" {
		return Token{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return Token{}, fmt.Errorf("%w: expected 4 segments, got %d", ErrMalformed, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return Token{}, fmt.Errorf("%w: segment %d is blank", ErrMalformed, i+1)
		}
	}

	if parts[0] != "v2" {
		return Token{}, fmt.Errorf("%w: version %q", ErrUnsupported, parts[0])
	}

	var t Token
	switch Purpose(parts[1]) {
	case PurposeLocal:
		t.purpose = PurposeLocal
		t.header = headerLocal
	case PurposePublic:
		t.purpose = PurposePublic
		t.header = headerPublic
	default:
		return Token{}, fmt.Errorf("%w: purpose %q", ErrUnsupported, parts[1])
	}

	payload, err := b64.DecodeString(parts[2])
	if err != nil {
		return Token{}, fmt.Errorf("%w: payload segment: %v", ErrMalformed, err)
	}
	footer, err := b64.DecodeString(parts[3])
	if err != nil {
		return Token{}, fmt.Errorf("%w: footer segment: %v", ErrMalformed, err)
	}

	t.payload = payload
	t.footer = footer
	return t, nil
}

// Purpose reports whether this is a local or public token.
func (t Token) Purpose() Purpose { return t.purpose }

// Footer returns a copy of the decoded footer bytes. The footer is
// authenticated by Verify/Decrypt but never encrypted, so its contents are
// readable (and only trustworthy after the cryptographic step passes).
func (t Token) Footer() []byte {
	out := make([]byte, len(t.footer))
	copy(out, t.footer)
	return out
}
