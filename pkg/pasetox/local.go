package pasetox

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// LocalKeySize is the required byte length for v2.local symmetric keys.
const LocalKeySize = chacha20poly1305.KeySize

const localNonceSize = chacha20poly1305.NonceSizeX

// EncryptLocal mints a v2.local token from a claims payload and footer.
// The nonce is derived by keying BLAKE2b with fresh random bytes over the
// message, so identical payloads still never share a nonce but a broken
// RNG cannot silently repeat one either.
func EncryptLocal(key, message, footer []byte) (string, error) {
	if len(key) != LocalKeySize {
		return "", fmt.Errorf("%w: need %d bytes, got %d", ErrKeySize, LocalKeySize, len(key))
	}

	seed := make([]byte, localNonceSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return "", fmt.Errorf("pasetox: generate nonce seed: %w", err)
	}

	hash, err := blake2b.New(localNonceSize, seed)
	if err != nil {
		return "", fmt.Errorf("pasetox: derive nonce: %w", err)
	}
	hash.Write(message)
	nonce := hash.Sum(nil)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("pasetox: init cipher: %w", err)
	}

	preAuth := pae([]byte(headerLocal), nonce, footer)
	sealed := aead.Seal(nil, nonce, message, preAuth)

	body := make([]byte, 0, len(nonce)+len(sealed))
	body = append(body, nonce...)
	body = append(body, sealed...)

	return headerLocal + b64.EncodeToString(body) + "." + b64.EncodeToString(footer), nil
}

// DecryptLocal opens a v2.local token and returns the claims payload.
// The footer rides along as associated data, so a token whose footer was
// swapped after minting fails authentication here even though the footer
// itself is plaintext.
func DecryptLocal(t Token, key []byte) ([]byte, error) {
	if t.purpose != PurposeLocal {
		return nil, fmt.Errorf("%w: not a local token", ErrUnsupported)
	}
	if len(key) != LocalKeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrKeySize, LocalKeySize, len(key))
	}
	if len(t.payload) < localNonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: payload too short", ErrMalformed)
	}

	nonce, sealed := t.payload[:localNonceSize], t.payload[localNonceSize:]

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("pasetox: init cipher: %w", err)
	}

	preAuth := pae([]byte(headerLocal), nonce, t.footer)
	message, err := aead.Open(nil, nonce, sealed, preAuth)
	if err != nil {
		return nil, ErrDecrypt
	}
	return message, nil
}
