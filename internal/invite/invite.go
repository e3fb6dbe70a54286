// Package invite implements the Invite / InviteResponse handshake: a
// two-layer AEAD envelope that lets an invitee join a Double Ratchet
// session without the inviter learning the invitee's identity from
// anything but the envelope's innermost, DH-authenticated layer.
package invite

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/eventcodec"
)

// listNamespace is the Invite event's "l" tag value; deviceNamespace prefixes
// the device id in its "d" tag (spec.md SS4.3).
const (
	listNamespace   = "double-ratchet/invites"
	deviceNamespace = "double-ratchet/invites/"
)

var (
	// ErrMalformedInvite is returned by FromEvent/FromURL when required
	// fields are missing or not hex-decodable (spec.md SS7 MalformedEvent).
	ErrMalformedInvite = errors.New("invite: malformed invite")
)

// ToEvent signs inv as a standalone Invite event (spec.md SS4.3). deviceID
// is inv.DeviceID; MaxUses/UsedBy/Label are local bookkeeping and are not
// part of the wire event.
func ToEvent(inviterPriv types.PrivateKey, inv types.Invite) (types.Event, error) {
	if inv.DeviceID == "" {
		return types.Event{}, fmt.Errorf("invite: empty device id")
	}
	e := types.Event{
		Kind: types.InviteEventKind,
		Tags: []types.Tag{
			{"ephemeralKey", inv.EphemeralPub.Hex()},
			{"sharedSecret", hex.EncodeToString(inv.SharedSecret[:])},
			{"d", deviceNamespace + inv.DeviceID},
			{"l", listNamespace},
		},
	}
	return eventcodec.Finalize(inviterPriv, e)
}

// FromEvent parses an Invite event. The signature MUST verify; malformed
// tags are reported as ErrMalformedInvite (spec.md SS7).
func FromEvent(e types.Event) (types.Invite, error) {
	if !eventcodec.Verify(e) {
		return types.Invite{}, ErrMalformedInvite
	}
	ephHex, ok := e.Tag("ephemeralKey")
	if !ok {
		return types.Invite{}, ErrMalformedInvite
	}
	secretHex, ok := e.Tag("sharedSecret")
	if !ok {
		return types.Invite{}, ErrMalformedInvite
	}
	dTag, ok := e.Tag("d")
	if !ok || len(dTag) <= len(deviceNamespace) {
		return types.Invite{}, ErrMalformedInvite
	}

	eph, err := decodeHexPub(ephHex)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}
	secret, err := decodeHex32(secretHex)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}

	return types.Invite{
		InviterPub:   e.PubKey,
		EphemeralPub: eph,
		SharedSecret: secret,
		DeviceID:     dTag[len(deviceNamespace):],
		UsedBy:       map[string]bool{},
	}, nil
}

// urlPayload is the JSON object living in an Invite URL's fragment
// (spec.md SS6 "Invite URL"): exactly {inviter, ephemeralKey, sharedSecret}.
type urlPayload struct {
	Inviter      string `json:"inviter"`
	EphemeralKey string `json:"ephemeralKey"`
	SharedSecret string `json:"sharedSecret"`
}

// ToURL renders inv as a fragment-only URL under root (spec.md SS6).
func ToURL(root string, inv types.Invite) (string, error) {
	payload := urlPayload{
		Inviter:      inv.InviterPub.Hex(),
		EphemeralKey: inv.EphemeralPub.Hex(),
		SharedSecret: hex.EncodeToString(inv.SharedSecret[:]),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return root + "#" + url.QueryEscape(string(data)), nil
}

// FromURL parses a URL produced by ToURL. Only the fragment is read; the
// path and query are ignored (spec.md SS6: the fields never live there).
func FromURL(raw string) (types.Invite, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}
	decoded, err := url.QueryUnescape(u.Fragment)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}
	var payload urlPayload
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		return types.Invite{}, ErrMalformedInvite
	}

	inviter, err := decodeHexPub(payload.Inviter)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}
	eph, err := decodeHexPub(payload.EphemeralKey)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}
	secret, err := decodeHex32(payload.SharedSecret)
	if err != nil {
		return types.Invite{}, ErrMalformedInvite
	}

	return types.Invite{
		InviterPub:   inviter,
		EphemeralPub: eph,
		SharedSecret: secret,
		UsedBy:       map[string]bool{},
	}, nil
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

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(out) {
		return out, ErrMalformedInvite
	}
	copy(out[:], b)
	return out, nil
}
