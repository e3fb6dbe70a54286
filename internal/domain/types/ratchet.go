package types

// SkippedChain holds message keys derived but not yet consumed for one
// historical peer ratchet public key, bounded at MaxSkippedPerChain entries
// (spec.md SS3, SS4.2 "Skipped-key cache bound").
type SkippedChain struct {
	HeaderKeys  [2]PublicKey        `json:"header_keys"`
	MessageKeys map[uint32][32]byte `json:"message_keys"`
}

// MaxSkippedPerChain is the per-chain skipped-key cap (spec.md SS4.2, "MAX_SKIP").
const MaxSkippedPerChain = 1000

// MaxSkippedChains bounds the aggregate number of historical ratchet
// public keys a session will retain skipped keys for. Overflow evicts the
// oldest entry (FIFO on insertion), per spec.md SS4.2.
const MaxSkippedChains = 16

// SessionState is the authoritative Double Ratchet state (spec.md SS3);
// everything else about a Session is derivable from it.
type SessionState struct {
	RootKey [32]byte `json:"root_key"`

	SendingChainKey   *[32]byte `json:"sending_chain_key,omitempty"`
	ReceivingChainKey *[32]byte `json:"receiving_chain_key,omitempty"`

	SendingChainMessageNumber   uint32 `json:"sending_chain_message_number"`
	ReceivingChainMessageNumber uint32 `json:"receiving_chain_message_number"`
	PreviousSendingChainCount   uint32 `json:"previous_sending_chain_message_count"`

	OurCurrentRatchetPriv *PrivateKey `json:"our_current_ratchet_priv,omitempty"`
	OurCurrentRatchetPub  *PublicKey  `json:"our_current_ratchet_pub,omitempty"`
	OurNextRatchetPriv    *PrivateKey `json:"our_next_ratchet_priv,omitempty"`
	OurNextRatchetPub     *PublicKey  `json:"our_next_ratchet_pub,omitempty"`

	TheirCurrentRatchetPub *PublicKey `json:"their_current_ratchet_pub,omitempty"`
	TheirNextRatchetPub    *PublicKey `json:"their_next_ratchet_pub,omitempty"`

	// SkippedKeys is keyed by the hex encoding of the peer ratchet public key
	// it was derived against, and insertion-ordered via SkippedOrder for FIFO
	// eviction (spec.md SS4.2).
	SkippedKeys  map[string]*SkippedChain `json:"skipped_keys"`
	SkippedOrder []string                 `json:"skipped_order"`

	// OurIdentityPub/TheirIdentityPub are retained for diagnostics and for
	// offline recovery via DecryptEventWithState; they do not affect ratchet
	// progression once the first root key has been mixed.
	OurIdentityPub   PublicKey `json:"our_identity_pub"`
	TheirIdentityPub PublicKey `json:"their_identity_pub"`

	IsInitiator bool   `json:"is_initiator"`
	Name        string `json:"name"`
}
