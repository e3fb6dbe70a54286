// Package ratchet implements the Double Ratchet session state machine: a
// per-direction DH ratchet combined with a symmetric KDF chain per message.
package ratchet

import (
	"ratchetlink/internal/crypto"
)

var (
	rootSalt  = []byte("ratchetlink-ratchet-root")
	chainSalt = []byte("ratchetlink-ratchet-chain")
)

// rootStep performs the DH ratchet step: given the current root key and a
// freshly computed DH output, it derives the next root key, the chain key
// for the chain that the ratchet step opened, and a header key hint for the
// chain after that.
func rootStep(rootKey, dhOutput [32]byte) (newRoot, chainKey, nextHeaderKey [32]byte) {
	return crypto.KDF3(append(rootKey[:], dhOutput[:]...), rootSalt)
}

// chainStep advances a symmetric KDF chain by one message, returning the
// next chain key and the message key for the message just produced.
func chainStep(chainKey [32]byte) (nextChainKey, messageKey [32]byte) {
	return crypto.KDF2(chainKey[:], chainSalt)
}
