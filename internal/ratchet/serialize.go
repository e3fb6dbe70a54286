package ratchet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"ratchetlink/internal/domain/types"
)

// wireSkippedChain mirrors types.SkippedChain with hex-encoded message keys;
// map keys are u32 message numbers, which encoding/json already renders as
// stringified decimals (spec.md SS6).
type wireSkippedChain struct {
	HeaderKeys  [2]types.PublicKey `json:"header_keys"`
	MessageKeys map[uint32]string  `json:"message_keys"`
}

// wireSessionState is the hex-string-everywhere wire form of
// types.SessionState (spec.md SS6: "SessionState is serialized with
// Uint8Array fields as hex strings").
type wireSessionState struct {
	RootKey string `json:"root_key"`

	SendingChainKey   *string `json:"sending_chain_key,omitempty"`
	ReceivingChainKey *string `json:"receiving_chain_key,omitempty"`

	SendingChainMessageNumber   uint32 `json:"sending_chain_message_number"`
	ReceivingChainMessageNumber uint32 `json:"receiving_chain_message_number"`
	PreviousSendingChainCount   uint32 `json:"previous_sending_chain_message_count"`

	OurCurrentRatchetPriv *types.PrivateKey `json:"our_current_ratchet_priv,omitempty"`
	OurCurrentRatchetPub  *types.PublicKey  `json:"our_current_ratchet_pub,omitempty"`
	OurNextRatchetPriv    *types.PrivateKey `json:"our_next_ratchet_priv,omitempty"`
	OurNextRatchetPub     *types.PublicKey  `json:"our_next_ratchet_pub,omitempty"`

	TheirCurrentRatchetPub *types.PublicKey `json:"their_current_ratchet_pub,omitempty"`
	TheirNextRatchetPub    *types.PublicKey `json:"their_next_ratchet_pub,omitempty"`

	SkippedKeys  map[string]*wireSkippedChain `json:"skipped_keys"`
	SkippedOrder []string                     `json:"skipped_order"`

	OurIdentityPub   types.PublicKey `json:"our_identity_pub"`
	TheirIdentityPub types.PublicKey `json:"their_identity_pub"`

	IsInitiator bool   `json:"is_initiator"`
	Name        string `json:"name"`
}

// SerializeSessionState renders a SessionState to JSON with every byte field
// hex-encoded (spec.md SS6's "Persisted layout"). UserRecordStore does not
// use it: it stores SessionState with encoding/json's default layout, where
// fixed-size byte arrays such as RootKey appear as arrays of numbers.
func SerializeSessionState(s types.SessionState) ([]byte, error) {
	w := wireSessionState{
		RootKey:                      hex.EncodeToString(s.RootKey[:]),
		SendingChainMessageNumber:    s.SendingChainMessageNumber,
		ReceivingChainMessageNumber:  s.ReceivingChainMessageNumber,
		PreviousSendingChainCount:    s.PreviousSendingChainCount,
		OurCurrentRatchetPriv:        s.OurCurrentRatchetPriv,
		OurCurrentRatchetPub:         s.OurCurrentRatchetPub,
		OurNextRatchetPriv:           s.OurNextRatchetPriv,
		OurNextRatchetPub:            s.OurNextRatchetPub,
		TheirCurrentRatchetPub:       s.TheirCurrentRatchetPub,
		TheirNextRatchetPub:          s.TheirNextRatchetPub,
		SkippedOrder:                 s.SkippedOrder,
		OurIdentityPub:               s.OurIdentityPub,
		TheirIdentityPub:             s.TheirIdentityPub,
		IsInitiator:                  s.IsInitiator,
		Name:                         s.Name,
	}
	if s.SendingChainKey != nil {
		h := hex.EncodeToString(s.SendingChainKey[:])
		w.SendingChainKey = &h
	}
	if s.ReceivingChainKey != nil {
		h := hex.EncodeToString(s.ReceivingChainKey[:])
		w.ReceivingChainKey = &h
	}
	w.SkippedKeys = make(map[string]*wireSkippedChain, len(s.SkippedKeys))
	for k, chain := range s.SkippedKeys {
		wc := &wireSkippedChain{
			HeaderKeys:  chain.HeaderKeys,
			MessageKeys: make(map[uint32]string, len(chain.MessageKeys)),
		}
		for n, mk := range chain.MessageKeys {
			wc.MessageKeys[n] = hex.EncodeToString(mk[:])
		}
		w.SkippedKeys[k] = wc
	}
	return json.Marshal(w)
}

// DeserializeSessionState reverses SerializeSessionState.
func DeserializeSessionState(data []byte) (types.SessionState, error) {
	var w wireSessionState
	if err := json.Unmarshal(data, &w); err != nil {
		return types.SessionState{}, err
	}

	root, err := decodeHex32(w.RootKey)
	if err != nil {
		return types.SessionState{}, fmt.Errorf("ratchet: root_key: %w", err)
	}

	s := types.SessionState{
		RootKey:                     root,
		SendingChainMessageNumber:   w.SendingChainMessageNumber,
		ReceivingChainMessageNumber: w.ReceivingChainMessageNumber,
		PreviousSendingChainCount:   w.PreviousSendingChainCount,
		OurCurrentRatchetPriv:       w.OurCurrentRatchetPriv,
		OurCurrentRatchetPub:        w.OurCurrentRatchetPub,
		OurNextRatchetPriv:          w.OurNextRatchetPriv,
		OurNextRatchetPub:           w.OurNextRatchetPub,
		TheirCurrentRatchetPub:      w.TheirCurrentRatchetPub,
		TheirNextRatchetPub:         w.TheirNextRatchetPub,
		SkippedOrder:                w.SkippedOrder,
		OurIdentityPub:              w.OurIdentityPub,
		TheirIdentityPub:            w.TheirIdentityPub,
		IsInitiator:                 w.IsInitiator,
		Name:                        w.Name,
		SkippedKeys:                 map[string]*types.SkippedChain{},
	}
	if w.SendingChainKey != nil {
		ck, err := decodeHex32(*w.SendingChainKey)
		if err != nil {
			return types.SessionState{}, fmt.Errorf("ratchet: sending_chain_key: %w", err)
		}
		s.SendingChainKey = &ck
	}
	if w.ReceivingChainKey != nil {
		ck, err := decodeHex32(*w.ReceivingChainKey)
		if err != nil {
			return types.SessionState{}, fmt.Errorf("ratchet: receiving_chain_key: %w", err)
		}
		s.ReceivingChainKey = &ck
	}
	for k, wc := range w.SkippedKeys {
		chain := &types.SkippedChain{
			HeaderKeys:  wc.HeaderKeys,
			MessageKeys: make(map[uint32][32]byte, len(wc.MessageKeys)),
		}
		for n, hx := range wc.MessageKeys {
			mk, err := decodeHex32(hx)
			if err != nil {
				return types.SessionState{}, fmt.Errorf("ratchet: skipped_keys[%s][%d]: %w", k, n, err)
			}
			chain.MessageKeys[n] = mk
		}
		s.SkippedKeys[k] = chain
	}
	return s, nil
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
