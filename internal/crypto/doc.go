// Package crypto exposes the minimal primitives the ratchet and invite
// codecs are built on.
//
// Contents
//
//   - Ristretto255 key generation and Diffie-Hellman (GenerateKeyPair, DH)
//   - A from-scratch Schnorr signature scheme over the same Ristretto255
//     keys (Sign, Verify), since every key in this system is used both to
//     sign and to perform ECDH (spec.md SS1, SS6) — mirroring how a
//     BIP-340 x-only secp256k1 key is used in the substrate this library
//     targets.
//   - KDF1/KDF2/KDF3, the ratchet's HKDF-like chain derivations, built on
//     the KT128 (KangarooTwelve) extendable-output function.
//   - Seal/Open, the ratchet's per-message "versioned conversation-key
//     encryption", built on TreeWrap (a key-committing AEAD that requires a
//     fresh key per call instead of a nonce — exactly the Double Ratchet's
//     per-message-key contract).
//   - A nonce-based AEAD envelope (ChaCha20-Poly1305) for constructions that
//     reuse a key across multiple encryptions, namely the Invite two-layer
//     envelope.
//   - Best-effort memory wiping for sensitive byte slices (Wipe).
//   - Short public-key fingerprints for display/logging (Fingerprint).
package crypto
