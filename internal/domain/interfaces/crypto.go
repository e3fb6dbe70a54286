package interfaces

import domaintypes "ratchetlink/internal/domain/types"

// Signer is the signing collaborator the spec treats as assumed-correct and
// external (spec.md SS1, SS6): Schnorr-style signatures over 32-byte keys.
type Signer interface {
	Sign(priv domaintypes.PrivateKey, msg []byte) []byte
	Verify(pub domaintypes.PublicKey, msg, sig []byte) bool
}

// DH is the ECDH collaborator used to derive 32-byte conversation keys
// (spec.md SS1, SS4.1).
type DH interface {
	SharedSecret(priv domaintypes.PrivateKey, pub domaintypes.PublicKey) ([32]byte, error)
}

// AEAD is the versioned conversation-key encryption collaborator
// (spec.md SS1, SS6).
type AEAD interface {
	Seal(key [32]byte, plaintext []byte) ([]byte, error)
	Open(key [32]byte, sealed []byte) ([]byte, error)
}

// Encryptor models SS9's "polymorphic encryptor": either a raw private key
// (Key) or a custom encrypt/decrypt capability (Custom), used by Invite
// Accept/Listen so a caller can substitute a hardware-backed key for a raw
// PrivateKey.
type Encryptor struct {
	Key    *domaintypes.PrivateKey
	Custom func(payload []byte, peerPub domaintypes.PublicKey) ([]byte, error)
}

// Decryptor is Encryptor's receive-side counterpart.
type Decryptor struct {
	Key    *domaintypes.PrivateKey
	Custom func(ciphertext []byte, peerPub domaintypes.PublicKey) ([]byte, error)
}
