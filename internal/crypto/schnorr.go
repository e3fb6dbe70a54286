package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"github.com/gtank/ristretto255"

	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
)

// SignatureSize is the length of a signature produced by Sign.
const SignatureSize = 64

// Sign produces an EdDSA-style Schnorr signature over msg using priv. Every
// key in this system doubles as a DH key (see dh.go) and a signing key
// (spec.md SS1, SS6), so signing is built on the same Ristretto255 group as
// the DH collaborator rather than on a separate curve.
func Sign(priv types.PrivateKey, msg []byte) []byte {
	d, err := ristretto255.NewScalar().SetCanonicalBytes(priv[:])
	if err != nil {
		return nil
	}
	pub := ristretto255.NewIdentityElement().ScalarBaseMult(d)

	var hedge [32]byte
	_, _ = rand.Read(hedge[:])

	// Commitment scalar k, bound to the signer's key, the message, and fresh
	// randomness so a faulty RNG alone can't force nonce reuse.
	k, err := ristretto255.NewScalar().SetUniformBytes(squeeze(64, concat(pub.Bytes(), d.Bytes(), hedge[:], msg), []byte("ratchetlink-schnorr-commit")))
	if err != nil {
		return nil
	}
	r := ristretto255.NewIdentityElement().ScalarBaseMult(k)
	rBytes := r.Bytes()

	c := schnorrChallenge(pub.Bytes(), rBytes, msg)

	s := ristretto255.NewScalar().Multiply(d, c)
	s = s.Add(s, k)

	return append(rBytes, s.Bytes()...)
}

// Verify reports whether sig is a valid signature over msg by the holder of
// pub's private half.
func Verify(pub types.PublicKey, msg, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}

	q, err := ristretto255.NewIdentityElement().SetCanonicalBytes(pub[:])
	if err != nil {
		return false
	}

	s, err := ristretto255.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	c := schnorrChallenge(pub[:], sig[:32], msg)

	// Expected commitment: R' = [s]G + [-c]Q. A valid signature has R' == R.
	expectedR := ristretto255.NewIdentityElement().VarTimeDoubleScalarBaseMult(ristretto255.NewScalar().Negate(c), q, s)

	return subtle.ConstantTimeCompare(sig[:32], expectedR.Bytes()) == 1
}

func schnorrChallenge(pub, commitment, msg []byte) *ristretto255.Scalar {
	c, _ := ristretto255.NewScalar().SetUniformBytes(squeeze(64, concat(pub, commitment, msg), []byte("ratchetlink-schnorr-challenge")))
	return c
}

// signerCollaborator adapts Sign/Verify to the domain.Signer contract.
type signerCollaborator struct{}

// NewSigner returns the default Schnorr signing collaborator implementation.
func NewSigner() interfaces.Signer {
	return signerCollaborator{}
}

func (signerCollaborator) Sign(priv types.PrivateKey, msg []byte) []byte {
	return Sign(priv, msg)
}

func (signerCollaborator) Verify(pub types.PublicKey, msg, sig []byte) bool {
	return Verify(pub, msg, sig)
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
