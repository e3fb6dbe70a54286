package crypto

import (
	"encoding/hex"

	"ratchetlink/internal/domain/types"
)

// Fingerprint returns a short, human-comparable hex digest of a public key,
// for display when two parties want to verify out-of-band that they share
// the same identity (spec.md SS5's "out-of-band verification" mention).
func Fingerprint(pub types.PublicKey) types.Fingerprint {
	sum := KDF1(pub.Slice(), []byte("ratchetlink-fingerprint"))
	return types.Fingerprint(hex.EncodeToString(sum[:8]))
}
