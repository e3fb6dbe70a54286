package ratchet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
)

var errBadPubLen = errors.New("ratchet: wrong-length public key in header tag")

// decryptEvent is the pure dispatch core behind both Session.DecryptEvent
// and DecryptEventWithState (spec.md SS4.2 "Receive"). It reports whether a
// DH ratchet step occurred (meaning the caller should swap its
// subscriptions). A nil inner event with a nil error means the event wasn't
// for this session, or failed to decrypt; per spec.md SS7 and invariant 5,
// both are non-fatal and leave state bit-identical to before the call: the
// chain-advance and DH-ratchet-step cases run against a clone and only
// commit it back into state once openInner has actually succeeded.
func decryptEvent(state *types.SessionState, event types.Event) (*types.InnerEvent, bool, error) {
	msgNum, ok := parseUintTag(event, "n")
	if !ok {
		return nil, false, nil
	}
	prevCount, _ := parseUintTag(event, "prev")

	switch {
	case state.TheirCurrentRatchetPub != nil && event.PubKey == *state.TheirCurrentRatchetPub && state.ReceivingChainKey != nil:
		work := cloneState(state)
		inner := decryptFromChain(work, event, msgNum)
		if inner == nil {
			return nil, false, nil
		}
		*state = *work
		return inner, false, nil

	case (state.TheirCurrentRatchetPub != nil && event.PubKey == *state.TheirCurrentRatchetPub) ||
		(state.TheirNextRatchetPub != nil && event.PubKey == *state.TheirNextRatchetPub):
		work := cloneState(state)
		if err := dhRatchetStep(work, event.PubKey, prevCount); err != nil {
			return nil, false, err
		}
		inner := decryptFromChain(work, event, msgNum)
		if inner == nil {
			return nil, false, nil
		}
		*state = *work
		return inner, true, nil

	default:
		return tryDecryptSkipped(state, event, msgNum), false, nil
	}
}

// cloneState deep-copies the parts of state that decryptFromChain and
// dhRatchetStep mutate in place (the skipped-key cache) so a failed decrypt
// attempt can be discarded without touching the caller's state at all.
func cloneState(state *types.SessionState) *types.SessionState {
	clone := *state

	clone.SkippedKeys = make(map[string]*types.SkippedChain, len(state.SkippedKeys))
	for peer, chain := range state.SkippedKeys {
		c := &types.SkippedChain{
			HeaderKeys:  chain.HeaderKeys,
			MessageKeys: make(map[uint32][32]byte, len(chain.MessageKeys)),
		}
		for n, mk := range chain.MessageKeys {
			c.MessageKeys[n] = mk
		}
		clone.SkippedKeys[peer] = c
	}
	clone.SkippedOrder = append([]string{}, state.SkippedOrder...)

	return &clone
}

// dhRatchetStep advances state to a new epoch anchored on the peer's
// freshly observed ratchet public key, per spec.md SS4.2 "Receive" case 2.
func dhRatchetStep(state *types.SessionState, peerPub types.PublicKey, prevCount uint32) error {
	if state.ReceivingChainKey != nil && state.TheirCurrentRatchetPub != nil {
		finalizeSkipped(state, *state.TheirCurrentRatchetPub, prevCount)
	}

	if state.OurCurrentRatchetPriv == nil {
		// A side that has not sent yet still holds its identity keypair in
		// Next (see Init); it derives both chains below, so the first reply
		// is presented under the identity key the peer already expects.
		state.OurCurrentRatchetPriv = state.OurNextRatchetPriv
		state.OurCurrentRatchetPub = state.OurNextRatchetPub
	}

	state.TheirCurrentRatchetPub = &peerPub
	state.TheirNextRatchetPub = &peerPub

	dh1, err := crypto.SharedSecret(*state.OurCurrentRatchetPriv, peerPub)
	if err != nil {
		return err
	}
	newRoot, recvChainKey, _ := rootStep(state.RootKey, dh1)
	crypto.Wipe(dh1[:])
	state.RootKey = newRoot
	state.ReceivingChainKey = &recvChainKey
	state.ReceivingChainMessageNumber = 0

	dh2, err := crypto.SharedSecret(*state.OurNextRatchetPriv, peerPub)
	if err != nil {
		return err
	}
	newRoot2, sendChainKey, _ := rootStep(state.RootKey, dh2)
	crypto.Wipe(dh2[:])
	state.RootKey = newRoot2
	state.PreviousSendingChainCount = state.SendingChainMessageNumber
	state.SendingChainMessageNumber = 0
	state.SendingChainKey = &sendChainKey

	// The key just spent deriving the sending chain (dh2) is the one Send
	// will sign outer events with from now on; promote it into Current and
	// generate a fresh Next, mirroring outboundRatchetStepLocked.
	state.OurCurrentRatchetPriv = state.OurNextRatchetPriv
	state.OurCurrentRatchetPub = state.OurNextRatchetPub

	newPriv, newPub, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	state.OurNextRatchetPriv = &newPriv
	state.OurNextRatchetPub = &newPub

	return nil
}

// decryptFromChain advances the receiving chain to msgNum, caching any
// skipped intermediate message keys, then decrypts event. state is always a
// scratch clone owned by the caller (decryptEvent): a nil return (crypto
// failure or malformed payload) means the caller discards state instead of
// committing it, so a failed decrypt never advances the chain the caller
// actually keeps.
func decryptFromChain(state *types.SessionState, event types.Event, msgNum uint32) *types.InnerEvent {
	if msgNum < state.ReceivingChainMessageNumber {
		return tryDecryptSkipped(state, event, msgNum)
	}

	peerPub := event.PubKey
	for state.ReceivingChainMessageNumber < msgNum {
		nextChainKey, skippedMK := chainStep(*state.ReceivingChainKey)
		cacheSkipped(state, peerPub, state.ReceivingChainMessageNumber, skippedMK)
		state.ReceivingChainKey = &nextChainKey
		state.ReceivingChainMessageNumber++
	}

	nextChainKey, messageKey := chainStep(*state.ReceivingChainKey)
	state.ReceivingChainKey = &nextChainKey
	state.ReceivingChainMessageNumber++

	inner := openInner(messageKey, event)
	crypto.Wipe(messageKey[:])
	if inner == nil {
		return nil
	}

	if hint, ok := event.Tag("header"); ok && hint != "" {
		if pub, err := parseHexPub(hint); err == nil {
			state.TheirNextRatchetPub = &pub
		}
	}
	return inner
}

func openInner(messageKey [32]byte, event types.Event) *types.InnerEvent {
	ciphertext, err := hex.DecodeString(event.Content)
	if err != nil {
		return nil
	}
	plaintext, err := crypto.Open(messageKey, ciphertext)
	if err != nil {
		return nil
	}
	var inner types.InnerEvent
	if err := json.Unmarshal(plaintext, &inner); err != nil {
		return nil
	}
	return &inner
}

func cacheSkipped(state *types.SessionState, peerPub types.PublicKey, msgNum uint32, mk [32]byte) {
	key := peerPub.Hex()
	chain, ok := state.SkippedKeys[key]
	if !ok {
		if len(state.SkippedOrder) >= types.MaxSkippedChains {
			oldest := state.SkippedOrder[0]
			state.SkippedOrder = state.SkippedOrder[1:]
			delete(state.SkippedKeys, oldest)
		}
		chain = &types.SkippedChain{MessageKeys: map[uint32][32]byte{}}
		state.SkippedKeys[key] = chain
		state.SkippedOrder = append(state.SkippedOrder, key)
	}
	if len(chain.MessageKeys) >= types.MaxSkippedPerChain {
		// BoundExceeded (spec.md SS7): drop silently, the triggering
		// message (if any) still decrypts from what's already derived.
		return
	}
	chain.MessageKeys[msgNum] = mk
}

func finalizeSkipped(state *types.SessionState, oldPeerPub types.PublicKey, prevCount uint32) {
	if state.ReceivingChainKey == nil {
		return
	}
	for state.ReceivingChainMessageNumber < prevCount {
		nextChainKey, mk := chainStep(*state.ReceivingChainKey)
		cacheSkipped(state, oldPeerPub, state.ReceivingChainMessageNumber, mk)
		state.ReceivingChainKey = &nextChainKey
		state.ReceivingChainMessageNumber++
	}
}

func tryDecryptSkipped(state *types.SessionState, event types.Event, msgNum uint32) *types.InnerEvent {
	key := event.PubKey.Hex()
	chain, ok := state.SkippedKeys[key]
	if !ok {
		return nil
	}
	mk, ok := chain.MessageKeys[msgNum]
	if !ok {
		return nil
	}
	inner := openInner(mk, event)
	crypto.Wipe(mk[:])
	if inner == nil {
		return nil
	}
	delete(chain.MessageKeys, msgNum)
	if len(chain.MessageKeys) == 0 {
		delete(state.SkippedKeys, key)
		for i, k := range state.SkippedOrder {
			if k == key {
				state.SkippedOrder = append(state.SkippedOrder[:i], state.SkippedOrder[i+1:]...)
				break
			}
		}
	}
	return inner
}

func parseUintTag(event types.Event, key string) (uint32, bool) {
	v, ok := event.Tag(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func parseHexPub(s string) (types.PublicKey, error) {
	var pub types.PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pub, err
	}
	if len(b) != len(pub) {
		return pub, errBadPubLen
	}
	copy(pub[:], b)
	return pub, nil
}
