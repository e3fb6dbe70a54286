package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// EnvelopeKeySchedule stretches a raw DH output into a uniformly distributed
// ChaCha20-Poly1305 key via HKDF, for the constructions that reuse one key
// across several encryptions (the Invite two-layer envelope, SS4.3) rather
// than the ratchet's one-key-per-message rule covered by Seal/Open.
func EnvelopeKeySchedule(sharedSecret []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, sharedSecret, nil, []byte(info))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EnvelopeSeal encrypts plaintext under key with a fresh random nonce,
// prepending the nonce to the returned ciphertext.
func EnvelopeSeal(key, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := aead.Seal(nonce, nonce, plaintext, additionalData)
	return out, nil
}

// EnvelopeOpen reverses EnvelopeSeal.
func EnvelopeOpen(key, sealed, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < chacha20poly1305.NonceSize {
		return nil, errors.New("crypto: envelope too short")
	}
	nonce, ct := sealed[:chacha20poly1305.NonceSize], sealed[chacha20poly1305.NonceSize:]
	return aead.Open(nil, nonce, ct, additionalData)
}
