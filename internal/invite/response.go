package invite

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/eventcodec"
	"ratchetlink/internal/ratchet"
)

// ErrMissingCapability is returned when neither a raw key nor a custom
// capability is available to perform a required decrypt (spec.md SS7
// MissingCapability).
var ErrMissingCapability = errors.New("invite: missing decrypt capability")

// ErrInviteExhausted names the condition of an invite that has reached
// MaxUses. Nothing in this package returns it: Listen silently ignores
// responses beyond MaxUses instead of reporting an error.
var ErrInviteExhausted = errors.New("invite: max uses reached")

const maxJitterSeconds = 2 * 24 * 60 * 60

// Accept is the invitee side of the handshake (spec.md SS4.3 "Accept"). It
// returns the freshly initialized session (as initiator, bound to the
// inviter's ephemeral key) and the signed envelope to publish.
func Accept(
	subscribe ratchet.SubscribeFunc,
	inv types.Invite,
	inviteeIdentityPub types.PublicKey,
	encryptor interfaces.Encryptor,
	deviceID string,
) (*ratchet.Session, types.Event, error) {
	sessionKeyPriv, sessionKeyPub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, types.Event{}, err
	}

	payload := types.InviteResponsePayload{SessionKey: sessionKeyPub, DeviceID: deviceID}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, types.Event{}, err
	}

	// dhEnc binds the invitee's identity: only the holder of
	// inviteeIdentityPriv can have produced this layer.
	dhEnc, err := encryptWith(encryptor, inv.InviterPub, payloadBytes)
	if err != nil {
		return nil, types.Event{}, err
	}

	sharedKey, err := sharedSecretAEADKey(inv.SharedSecret)
	if err != nil {
		return nil, types.Event{}, err
	}
	innerContent, err := crypto.EnvelopeSeal(sharedKey, dhEnc, nil)
	if err != nil {
		return nil, types.Event{}, err
	}

	inner := types.InnerEvent{
		PubKey:    inviteeIdentityPub,
		Content:   hex.EncodeToString(innerContent),
		CreatedAt: time.Now().Unix(),
	}
	innerBytes, err := json.Marshal(inner)
	if err != nil {
		return nil, types.Event{}, err
	}

	// The outer envelope is signed by a one-shot keypair R, never by the
	// invitee's own identity: this is what hides the invitee's pubkey from
	// anyone who only holds the invite's sharedSecret (spec.md SS4.3
	// "Rationale").
	oneShotPriv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, types.Event{}, err
	}
	envelopeKey, err := convKey(oneShotPriv, inv.EphemeralPub)
	if err != nil {
		return nil, types.Event{}, err
	}
	envelopeContent, err := crypto.EnvelopeSeal(envelopeKey, innerBytes, nil)
	if err != nil {
		return nil, types.Event{}, err
	}

	envelope := types.Event{
		Kind:      types.InviteResponseKind,
		Tags:      []types.Tag{{"p", inv.EphemeralPub.Hex()}},
		Content:   hex.EncodeToString(envelopeContent),
		CreatedAt: jitteredNow(),
	}
	envelope, err = eventcodec.Finalize(oneShotPriv, envelope)
	if err != nil {
		return nil, types.Event{}, err
	}

	session, err := ratchet.Init(subscribe, inv.EphemeralPub, sessionKeyPriv, true, inv.SharedSecret, "invite-accept")
	if err != nil {
		return nil, types.Event{}, err
	}

	return session, envelope, nil
}

// SessionCallback is invoked by Listen for each successfully processed
// invite response.
type SessionCallback func(session *ratchet.Session, inviteeIdentityPub types.PublicKey, deviceID string)

// Listen is the inviter side of the handshake (spec.md SS4.3 "Listen"). It
// subscribes for responses addressed to inviterEphemeralPub and invokes
// onSession for each one that decrypts successfully. Responses beyond
// inv.MaxUses are silently ignored, per spec.md SS4.3's invite limiting.
func Listen(
	subscribe ratchet.SubscribeFunc,
	inv *types.Invite,
	inviterEphemeralPriv types.PrivateKey,
	decryptor interfaces.Decryptor,
	onSession SessionCallback,
) (interfaces.Unsubscribe, error) {
	inviterEphemeralPub, err := crypto.PublicFromPrivate(inviterEphemeralPriv)
	if err != nil {
		return nil, err
	}
	if inv.UsedBy == nil {
		inv.UsedBy = map[string]bool{}
	}

	unsub := subscribe(types.Filter{
		Kinds: []int{types.InviteResponseKind},
		Tags:  map[string][]string{"#p": {inviterEphemeralPub.Hex()}},
	}, func(envelope types.Event) {
		if inv.MaxUses > 0 && len(inv.UsedBy) >= inv.MaxUses {
			return
		}

		inner, inviteeIdentityPub, deviceID, ok := decodeResponse(envelope, inviterEphemeralPriv, inv.SharedSecret, decryptor)
		if !ok {
			return
		}
		_ = inner

		session, err := ratchet.Init(subscribe, inner.SessionKey, inviterEphemeralPriv, false, inv.SharedSecret, envelope.ID)
		if err != nil {
			return
		}

		inv.UsedBy[inviteeIdentityPub.Hex()] = true
		onSession(session, inviteeIdentityPub, deviceID)
	})
	return unsub, nil
}

// decodeResponse peels the envelope's three AEAD layers. Any failure
// (malformed event, AEAD tag mismatch) is non-fatal: it returns ok=false
// per spec.md SS7 CryptoFailure policy.
func decodeResponse(
	envelope types.Event,
	inviterEphemeralPriv types.PrivateKey,
	sharedSecret [32]byte,
	decryptor interfaces.Decryptor,
) (types.InviteResponsePayload, types.PublicKey, string, bool) {
	var zero types.InviteResponsePayload

	envelopeKey, err := convKey(inviterEphemeralPriv, envelope.PubKey)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}
	envelopeCiphertext, err := hex.DecodeString(envelope.Content)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}
	innerBytes, err := crypto.EnvelopeOpen(envelopeKey, envelopeCiphertext, nil)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}

	var inner types.InnerEvent
	if err := json.Unmarshal(innerBytes, &inner); err != nil {
		return zero, types.PublicKey{}, "", false
	}
	inviteeIdentityPub := inner.PubKey

	dhEncCiphertext, err := hex.DecodeString(inner.Content)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}
	sharedKey, err := sharedSecretAEADKey(sharedSecret)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}
	dhEnc, err := crypto.EnvelopeOpen(sharedKey, dhEncCiphertext, nil)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}

	payloadBytes, err := decryptWith(decryptor, inviteeIdentityPub, dhEnc)
	if err != nil {
		return zero, types.PublicKey{}, "", false
	}

	var payload types.InviteResponsePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		// Fallback: treat the raw bytes as a hex-encoded session key
		// (spec.md SS4.3 "fallback: treat raw string as sessionKey").
		pub, perr := decodeHexPub(string(payloadBytes))
		if perr != nil {
			return zero, types.PublicKey{}, "", false
		}
		payload = types.InviteResponsePayload{SessionKey: pub}
	}

	return payload, inviteeIdentityPub, payload.DeviceID, true
}

func encryptWith(enc interfaces.Encryptor, peerPub types.PublicKey, payload []byte) ([]byte, error) {
	if enc.Custom != nil {
		return enc.Custom(payload, peerPub)
	}
	if enc.Key == nil {
		return nil, ErrMissingCapability
	}
	key, err := convKey(*enc.Key, peerPub)
	if err != nil {
		return nil, err
	}
	return crypto.EnvelopeSeal(key, payload, nil)
}

func decryptWith(dec interfaces.Decryptor, peerPub types.PublicKey, ciphertext []byte) ([]byte, error) {
	if dec.Custom != nil {
		return dec.Custom(ciphertext, peerPub)
	}
	if dec.Key == nil {
		return nil, ErrMissingCapability
	}
	key, err := convKey(*dec.Key, peerPub)
	if err != nil {
		return nil, err
	}
	return crypto.EnvelopeOpen(key, ciphertext, nil)
}

// convKey derives a ChaCha20-Poly1305 key from an ECDH output. Every AEAD
// layer in the handshake reuses a long-lived or twice-used key (the
// identity layer can be exercised by repeated accepts; the shared secret by
// every use up to MaxUses), so this module uses the nonce-based envelope
// construction rather than the ratchet's single-use Seal/Open.
func convKey(priv types.PrivateKey, pub types.PublicKey) ([]byte, error) {
	dh, err := crypto.SharedSecret(priv, pub)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(dh[:])
	return crypto.EnvelopeKeySchedule(dh[:], "ratchetlink-invite-convkey")
}

func sharedSecretAEADKey(sharedSecret [32]byte) ([]byte, error) {
	return crypto.EnvelopeKeySchedule(sharedSecret[:], "ratchetlink-invite-sharedsecret")
}

func decodeHexPub(s string) (types.PublicKey, error) {
	var pub types.PublicKey
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(pub) {
		return pub, ErrMalformedInvite
	}
	copy(pub[:], b)
	return pub, nil
}

func jitteredNow() int64 {
	now := time.Now().Unix()
	return now - rand.Int63n(maxJitterSeconds+1)
}
