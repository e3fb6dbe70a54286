package crypto

import (
	"crypto/subtle"
	"errors"

	"github.com/codahale/treewrap"

	"ratchetlink/internal/domain/interfaces"
)

// ErrAuthFailed is returned when a sealed message's tag does not verify.
var ErrAuthFailed = errors.New("crypto: message authentication failed")

// sealVersion is a leading format byte, letting a future revision of Seal
// change its underlying construction without breaking old ciphertexts.
const sealVersion = 1

// Seal encrypts plaintext under key using TreeWrap. TreeWrap is a
// key-committing tree AEAD with no nonce input; its contract is that key is
// never reused, which matches the Double Ratchet's rule that a derived
// message key encrypts exactly one message (spec.md SS4.2) and is
// discarded immediately afterward.
func Seal(key [32]byte, plaintext []byte) ([]byte, error) {
	ct, tag := treewrap.EncryptAndMAC(nil, &key, plaintext)
	out := make([]byte, 0, 1+treewrap.TagSize+len(ct))
	out = append(out, sealVersion)
	out = append(out, tag[:]...)
	out = append(out, ct...)
	return out, nil
}

// Open decrypts a message produced by Seal under key.
func Open(key [32]byte, sealed []byte) ([]byte, error) {
	if len(sealed) < 1+treewrap.TagSize {
		return nil, ErrAuthFailed
	}
	if sealed[0] != sealVersion {
		return nil, errors.New("crypto: unsupported seal version")
	}
	wantTag := sealed[1 : 1+treewrap.TagSize]
	ct := sealed[1+treewrap.TagSize:]

	pt, gotTag := treewrap.DecryptAndMAC(nil, &key, ct)
	if subtle.ConstantTimeCompare(wantTag, gotTag[:]) != 1 {
		return nil, ErrAuthFailed
	}
	return pt, nil
}

// aeadCollaborator adapts Seal/Open to the domain.AEAD contract.
type aeadCollaborator struct{}

// NewAEAD returns the default TreeWrap-backed AEAD collaborator implementation.
func NewAEAD() interfaces.AEAD {
	return aeadCollaborator{}
}

func (aeadCollaborator) Seal(key [32]byte, plaintext []byte) ([]byte, error) {
	return Seal(key, plaintext)
}

func (aeadCollaborator) Open(key [32]byte, sealed []byte) ([]byte, error) {
	return Open(key, sealed)
}
