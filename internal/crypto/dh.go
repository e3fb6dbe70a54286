package crypto

import (
	"crypto/rand"
	"errors"

	"github.com/gtank/ristretto255"

	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
)

// ErrInvalidKey is returned when a key's bytes do not decode to a valid
// Ristretto255 scalar or group element.
var ErrInvalidKey = errors.New("crypto: invalid ristretto255 key encoding")

// GenerateKeyPair returns a fresh Ristretto255 keypair, usable as an
// identity key, an invite ephemeral key, or a ratchet key.
func GenerateKeyPair() (types.PrivateKey, types.PublicKey, error) {
	var seed [64]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return types.PrivateKey{}, types.PublicKey{}, err
	}
	priv, err := ristretto255.NewScalar().SetUniformBytes(seed[:])
	if err != nil {
		return types.PrivateKey{}, types.PublicKey{}, err
	}
	pub := ristretto255.NewIdentityElement().ScalarBaseMult(priv)

	var privOut types.PrivateKey
	var pubOut types.PublicKey
	copy(privOut[:], priv.Bytes())
	copy(pubOut[:], pub.Bytes())
	return privOut, pubOut, nil
}

// PublicFromPrivate derives the public half of priv.
func PublicFromPrivate(priv types.PrivateKey) (types.PublicKey, error) {
	s, err := ristretto255.NewScalar().SetCanonicalBytes(priv[:])
	if err != nil {
		return types.PublicKey{}, ErrInvalidKey
	}
	pub := ristretto255.NewIdentityElement().ScalarBaseMult(s)
	var out types.PublicKey
	copy(out[:], pub.Bytes())
	return out, nil
}

// SharedSecret computes the Ristretto255 Diffie-Hellman shared point between
// priv and pub and returns its 32-byte canonical encoding (spec.md SS4.1
// "DH"). The result is raw DH output, not yet a uniformly-distributed key;
// callers run it through KDF1 (or similar) before use as a conversation key.
func SharedSecret(priv types.PrivateKey, pub types.PublicKey) ([32]byte, error) {
	var out [32]byte
	s, err := ristretto255.NewScalar().SetCanonicalBytes(priv[:])
	if err != nil {
		return out, ErrInvalidKey
	}
	q, err := ristretto255.NewIdentityElement().SetCanonicalBytes(pub[:])
	if err != nil {
		return out, ErrInvalidKey
	}
	shared := ristretto255.NewIdentityElement().ScalarMult(s, q)
	copy(out[:], shared.Bytes())
	return out, nil
}

// dhCollaborator adapts SharedSecret to the domain.DH contract.
type dhCollaborator struct{}

// DH returns the default ECDH collaborator implementation.
func DH() interfaces.DH {
	return dhCollaborator{}
}

func (dhCollaborator) SharedSecret(priv types.PrivateKey, pub types.PublicKey) ([32]byte, error) {
	return SharedSecret(priv, pub)
}
