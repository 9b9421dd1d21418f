// Package envelope implements the symmetric envelope codec and the X25519
// key exchange that bootstraps it. Seal and Open wrap every encrypted
// request/response body; SharedSecret and DecryptSessionKey are used once per
// handshake to unwrap the delivered session key.
package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of session keys and shared secrets.
const KeySize = 32

// nonceSize is the AEAD nonce prepended to every sealed value.
const nonceSize = chacha20poly1305.NonceSize

// EnvelopeError is a typed error for envelope codec failures.
type EnvelopeError string

func (e EnvelopeError) Error() string { return string(e) }

const (
	// ErrDecryption is returned for any Open failure. It is deliberately
	// opaque: no partial plaintext and no hint about which check failed.
	ErrDecryption = EnvelopeError("decryption failed")
	// ErrKeyExchange is returned when a Diffie-Hellman operation cannot be
	// performed with the given inputs.
	ErrKeyExchange = EnvelopeError("key exchange failed")
	// ErrSessionKeyLength is returned when a decrypted session key is not
	// exactly KeySize bytes.
	ErrSessionKeyLength = EnvelopeError("decrypted session key has wrong length")
)

// KeyPair is an X25519 key pair for one handshake.
type KeyPair struct {
	Public  []byte
	private []byte
}

// GenerateKeyPair creates a fresh X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	private := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(private); err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	public, err := curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}
	return &KeyPair{Public: public, private: private}, nil
}

// SharedSecret computes the X25519 shared secret between kp's private key
// and the peer's public key.
func (kp *KeyPair) SharedSecret(peerPublic []byte) ([KeySize]byte, error) {
	var secret [KeySize]byte
	if len(peerPublic) != curve25519.PointSize {
		return secret, fmt.Errorf("%w: peer public key must be %d bytes, got %d",
			ErrKeyExchange, curve25519.PointSize, len(peerPublic))
	}
	shared, err := curve25519.X25519(kp.private, peerPublic)
	if err != nil {
		return secret, fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}
	copy(secret[:], shared)
	return secret, nil
}

// Seal encrypts plaintext under key with a fresh random nonce and returns
// nonce || ciphertext || tag.
func Seal(key *[KeySize]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	sealed := make([]byte, nonceSize, nonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(sealed[:nonceSize]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(sealed, sealed[:nonceSize], plaintext, nil), nil
}

// Open decrypts a value produced by Seal. Any authentication failure is the
// single opaque ErrDecryption.
func Open(key *[KeySize]byte, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("%w: input shorter than nonce", ErrDecryption)
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// DecryptSessionKey unwraps a base64-encoded sealed session key under the
// handshake shared secret. The plaintext must be exactly KeySize bytes; any
// other length is an error, never a truncate or pad.
func DecryptSessionKey(sharedSecret [KeySize]byte, sealedB64 string) ([KeySize]byte, error) {
	var key [KeySize]byte
	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return key, fmt.Errorf("%w: invalid base64", ErrDecryption)
	}
	plaintext, err := Open(&sharedSecret, sealed)
	if err != nil {
		return key, err
	}
	if len(plaintext) != KeySize {
		return key, ErrSessionKeyLength
	}
	copy(key[:], plaintext)
	return key, nil
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
