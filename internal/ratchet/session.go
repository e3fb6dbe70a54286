package ratchet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/eventcodec"
)

// ErrNoPeerRatchetKey is returned by Send when no DH counterparty key is
// known yet (should not happen once Init has run).
var ErrNoPeerRatchetKey = errors.New("ratchet: no known peer ratchet key")

// maxJitterSeconds bounds how far into the past an event's created_at may be
// backdated, to frustrate traffic analysis (spec.md SS4.2).
const maxJitterSeconds = 2 * 24 * 60 * 60

// SubscribeFunc matches interfaces.EventBus.Subscribe: the capability a
// Session uses to receive events, without needing the whole bus.
type SubscribeFunc func(filter types.Filter, handler interfaces.EventHandler) interfaces.Unsubscribe

// Session is one side of a Double Ratchet conversation riding on top of the
// event bus (spec.md SS4.2).
type Session struct {
	mu    sync.Mutex
	state types.SessionState

	subscribe    SubscribeFunc
	unsubCurrent interfaces.Unsubscribe
	unsubNext    interfaces.Unsubscribe
	handlers     []func(types.InnerEvent)
}

// Init constructs a Session and immediately opens its subscriptions.
//
// Both sides derive the same root key from sharedSecret mixed with
// DH(ourIdentityPriv, theirIdentityPub). Both sides also treat their own
// identity keypair as the ratchet key they will present the first time they
// send, and expect the peer to do the same; this lets each side predict the
// other's first header key purely from the invite, without either side
// needing to observe the other's private material. Subsequent epochs use
// freshly generated ratchet keys, announced a step ahead via each
// message's "header" tag.
func Init(subscribe SubscribeFunc, theirIdentityPub types.PublicKey, ourIdentityPriv types.PrivateKey, isInitiator bool, sharedSecret [32]byte, name string) (*Session, error) {
	ourIdentityPub, err := crypto.PublicFromPrivate(ourIdentityPriv)
	if err != nil {
		return nil, err
	}

	dh, err := crypto.SharedSecret(ourIdentityPriv, theirIdentityPub)
	if err != nil {
		return nil, err
	}
	rootKey := crypto.KDF1(append(append([]byte{}, sharedSecret[:]...), dh[:]...), []byte("ratchetlink-session-init"))
	crypto.Wipe(dh[:])

	// Both sides treat their own identity keypair as the ratchet key they
	// will present the first time they send, and expect the peer to do the
	// same (see the Init doc comment above). Seed OurNextRatchetPriv/Pub
	// from the identity keypair now, since the private half is never
	// stored anywhere else once Init returns.
	ourNextPriv := ourIdentityPriv
	ourNextPub := ourIdentityPub
	theirNext := theirIdentityPub

	s := &Session{
		subscribe: subscribe,
		state: types.SessionState{
			RootKey:             rootKey,
			OurIdentityPub:      ourIdentityPub,
			TheirIdentityPub:    theirIdentityPub,
			OurNextRatchetPriv:  &ourNextPriv,
			OurNextRatchetPub:   &ourNextPub,
			TheirNextRatchetPub: &theirNext,
			IsInitiator:         isInitiator,
			Name:                name,
			SkippedKeys:         map[string]*types.SkippedChain{},
		},
	}

	s.resubscribeLocked()
	return s, nil
}

// FromState resumes a Session from previously persisted state, rebinding it
// to subscribe (spec.md SS4.5 "load... reconstructs sessions by rebinding
// them to the given subscribe capability").
func FromState(subscribe SubscribeFunc, state types.SessionState) *Session {
	s := &Session{subscribe: subscribe, state: state}
	if s.state.SkippedKeys == nil {
		s.state.SkippedKeys = map[string]*types.SkippedChain{}
	}
	s.resubscribeLocked()
	return s
}

// State returns a copy of the session's current authoritative state, for
// persistence via SerializeSessionState.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Name returns the session's logical name, used by the device store to
// decide whether an incoming session replaces an existing one in place
// (spec.md SS3 "DeviceRecord").
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Name
}

// OnEvent registers a handler invoked with every successfully decrypted
// inner event, in the order events arrive from the bus (spec.md SS4.2
// "Event stream").
func (s *Session) OnEvent(handler func(types.InnerEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Close cancels both held subscriptions and wipes private ratchet material.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSubscriptionsLocked()
	if s.state.OurCurrentRatchetPriv != nil {
		crypto.Wipe(s.state.OurCurrentRatchetPriv[:])
	}
	if s.state.OurNextRatchetPriv != nil {
		crypto.Wipe(s.state.OurNextRatchetPriv[:])
	}
}

// Send encrypts plaintext under the next message key in the sending chain,
// performing a DH ratchet step first if none is open (spec.md SS4.2
// "Send").
func (s *Session) Send(plaintext string) (types.Event, types.InnerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.SendingChainKey == nil {
		if err := s.outboundRatchetStepLocked(); err != nil {
			return types.Event{}, types.InnerEvent{}, err
		}
	}

	nextChainKey, messageKey := chainStep(*s.state.SendingChainKey)
	msgNum := s.state.SendingChainMessageNumber
	s.state.SendingChainMessageNumber++
	s.state.SendingChainKey = &nextChainKey

	inner := types.InnerEvent{
		PubKey:    s.state.OurIdentityPub,
		Content:   plaintext,
		Kind:      types.MessageKind,
		CreatedAt: jitteredNow(),
	}
	innerBytes, err := json.Marshal(inner)
	if err != nil {
		return types.Event{}, types.InnerEvent{}, err
	}

	ciphertext, err := crypto.Seal(messageKey, innerBytes)
	crypto.Wipe(messageKey[:])
	if err != nil {
		return types.Event{}, types.InnerEvent{}, err
	}

	headerHint := ""
	if s.state.OurNextRatchetPub != nil {
		headerHint = s.state.OurNextRatchetPub.Hex()
	}

	outer := types.Event{
		Kind: types.MessageKind,
		Tags: []types.Tag{
			{"header", headerHint},
			{"n", strconv.FormatUint(uint64(msgNum), 10)},
			{"prev", strconv.FormatUint(uint64(s.state.PreviousSendingChainCount), 10)},
		},
		Content:   hex.EncodeToString(ciphertext),
		CreatedAt: jitteredNow(),
	}
	outer, err = eventcodec.Finalize(*s.state.OurCurrentRatchetPriv, outer)
	if err != nil {
		return types.Event{}, types.InnerEvent{}, err
	}
	return outer, inner, nil
}

// DecryptEvent dispatches an inbound event to the current chain, the next
// (rotated) epoch, or the skipped-key cache, swapping subscriptions on a
// successful DH ratchet step and invoking every registered handler on a
// successful decrypt (spec.md SS4.2 "Receive").
func (s *Session) DecryptEvent(event types.Event) (*types.InnerEvent, error) {
	s.mu.Lock()

	inner, rotated, err := decryptEvent(&s.state, event)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if inner == nil {
		s.mu.Unlock()
		return nil, nil
	}
	if rotated {
		s.resubscribeLocked()
	}
	handlers := append([]func(types.InnerEvent){}, s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		h(*inner)
	}
	return inner, nil
}

// DecryptEventWithState is the pure offline counterpart of DecryptEvent: it
// takes a deserialized state and returns the decrypted inner event and the
// updated state, touching no subscriptions (spec.md SS4.2 "Offline helper").
func DecryptEventWithState(state types.SessionState, event types.Event) (*types.InnerEvent, types.SessionState, error) {
	if state.SkippedKeys == nil {
		state.SkippedKeys = map[string]*types.SkippedChain{}
	}
	inner, _, err := decryptEvent(&state, event)
	if err != nil {
		return nil, state, err
	}
	return inner, state, nil
}

func (s *Session) outboundRatchetStepLocked() error {
	if s.state.OurNextRatchetPriv == nil {
		priv, pub, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		s.state.OurNextRatchetPriv = &priv
		s.state.OurNextRatchetPub = &pub
	}
	if s.state.TheirNextRatchetPub == nil {
		return ErrNoPeerRatchetKey
	}

	dh, err := crypto.SharedSecret(*s.state.OurNextRatchetPriv, *s.state.TheirNextRatchetPub)
	if err != nil {
		return err
	}
	newRoot, chainKey, _ := rootStep(s.state.RootKey, dh)
	crypto.Wipe(dh[:])

	s.state.RootKey = newRoot
	s.state.PreviousSendingChainCount = s.state.SendingChainMessageNumber
	s.state.SendingChainMessageNumber = 0
	s.state.SendingChainKey = &chainKey

	s.state.OurCurrentRatchetPriv = s.state.OurNextRatchetPriv
	s.state.OurCurrentRatchetPub = s.state.OurNextRatchetPub

	newPriv, newPub, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	s.state.OurNextRatchetPriv = &newPriv
	s.state.OurNextRatchetPub = &newPub
	return nil
}

func (s *Session) resubscribeLocked() {
	if s.subscribe == nil {
		return
	}
	s.cancelSubscriptionsLocked()

	if s.state.TheirCurrentRatchetPub != nil {
		pub := *s.state.TheirCurrentRatchetPub
		s.unsubCurrent = s.subscribe(types.Filter{
			Kinds:   []int{types.MessageKind},
			Authors: []types.PublicKey{pub},
		}, s.handleBusEventLocked)
	}
	if s.state.TheirNextRatchetPub != nil {
		pub := *s.state.TheirNextRatchetPub
		s.unsubNext = s.subscribe(types.Filter{
			Kinds:   []int{types.MessageKind},
			Authors: []types.PublicKey{pub},
		}, s.handleBusEventLocked)
	}
}

func (s *Session) cancelSubscriptionsLocked() {
	if s.unsubCurrent != nil {
		s.unsubCurrent()
		s.unsubCurrent = nil
	}
	if s.unsubNext != nil {
		s.unsubNext()
		s.unsubNext = nil
	}
}

// handleBusEventLocked adapts the bus's EventHandler contract to
// DecryptEvent. It is invoked by the bus outside of s.mu, matching
// DecryptEvent's own locking.
func (s *Session) handleBusEventLocked(event types.Event) {
	_, _ = s.DecryptEvent(event)
}

func jitteredNow() int64 {
	now := time.Now().Unix()
	return now - rand.Int63n(maxJitterSeconds+1)
}
