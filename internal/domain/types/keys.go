package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PublicKey is the public half of a Ristretto255 keypair: a long-term
// identity key, an invite ephemeral key, or a rotating ratchet key. All
// three roles share one key type because the system's external collaborator
// contracts (spec.md SS1, SS6) treat signing and ECDH as operating over the
// same 32-byte key, exactly as a BIP-340-style x-only key does in the
// substrate this library targets.
type PublicKey [32]byte

// Slice returns the key as a []byte.
func (p PublicKey) Slice() []byte { return p[:] }

// Hex returns the lower-case hex encoding of the key.
func (p PublicKey) Hex() string { return hex.EncodeToString(p[:]) }

// IsZero reports whether the key is the zero value (never a valid point).
func (p PublicKey) IsZero() bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the key as a hex string, the same layout
// SerializeSessionState uses for byte fields (spec.md SS6).
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Hex())
}

// UnmarshalJSON decodes a hex string produced by MarshalJSON.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(p) {
		return fmt.Errorf("types: public key must be %d bytes, got %d", len(p), len(b))
	}
	copy(p[:], b)
	return nil
}

// PrivateKey is the private half of a Ristretto255 keypair.
type PrivateKey [32]byte

// Slice returns the key as a []byte.
func (k PrivateKey) Slice() []byte { return k[:] }

// Hex returns the lower-case hex encoding of the key.
func (k PrivateKey) Hex() string { return hex.EncodeToString(k[:]) }

// MarshalJSON encodes the key as a hex string.
func (k PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Hex())
}

// UnmarshalJSON decodes a hex string produced by MarshalJSON.
func (k *PrivateKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return fmt.Errorf("types: private key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return nil
}

// Identity holds a participant's long-term keypair: used both to sign
// events authored directly by the identity (the InviteList replaceable
// event, an Invite) and, via ECDH, to mix session root keys during the
// Invite handshake.
type Identity struct {
	Pub  PublicKey  `json:"pub"`
	Priv PrivateKey `json:"priv"`
}

// Fingerprint is a short display identifier derived from a public key.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
