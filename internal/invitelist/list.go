// Package invitelist implements InviteList: the owner's device registry,
// published as a single replaceable kind-10078 event and merged CRDT-style
// across concurrent edits from different devices (spec.md SS3, SS4.4).
package invitelist

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/eventcodec"
)

// dTag is the replaceable event's "d" tag value: every owner publishes at
// most one InviteList event per pubkey/kind/d-tag triple (spec.md SS4.4).
const dTag = "double-ratchet/invite-list"

// ErrMalformedInviteList is returned by FromEvent when the event's
// signature fails, its "d" tag is missing or wrong, or its "version" tag is
// not an integer (spec.md SS7 MalformedEvent). Malformed "device" and
// "removed" tags are dropped instead.
var ErrMalformedInviteList = errors.New("invitelist: malformed invite list event")

// New returns an empty InviteListState for owner.
func New(owner types.PublicKey) types.InviteListState {
	return types.InviteListState{
		Owner:   owner,
		Devices: map[string]*types.DeviceEntry{},
		Version: 1,
	}
}

// AddDevice inserts or replaces entry under its DeviceID and bumps
// state.CreatedAt to now, so a subsequent Merge against a concurrent edit
// resolves by recency (spec.md SS4.4 "addDevice"). It is a no-op for any id
// already present in state.Removed: once removed, a device id cannot re-enter
// devices via AddDevice (spec.md SS4.4, SS8 invariant 6).
func AddDevice(state *types.InviteListState, entry types.DeviceEntry, now int64) {
	for _, r := range state.Removed {
		if r.DeviceID == entry.DeviceID {
			return
		}
	}
	if state.Devices == nil {
		state.Devices = map[string]*types.DeviceEntry{}
	}
	e := entry
	state.Devices[entry.DeviceID] = &e
	state.CreatedAt = now
}

// RemoveDevice deletes deviceID from Devices and appends a tombstone to
// Removed, so a peer that merges an older copy of the list (still carrying
// that device) knows to drop it rather than resurrect it (spec.md SS4.4
// "removeDevice").
func RemoveDevice(state *types.InviteListState, deviceID string, now int64) {
	delete(state.Devices, deviceID)
	state.Removed = append(state.Removed, types.RemovedEntry{DeviceID: deviceID, Timestamp: now})
	state.CreatedAt = now
}

// Merge combines two observations of the same owner's InviteList
// (spec.md SS4.4 "Merge"): mainDeviceId/version come from the
// newer-CreatedAt side; devices are the union of both sides, preferring the
// newer side's entry for an id present in both; removed entries union,
// keeping the latest timestamp per deviceId, and every id in that union is
// dropped from devices whatever its timestamp. Merge is commutative: when a.CreatedAt == b.CreatedAt, the tie is
// broken on a content digest rather than argument position, so Merge(a, b)
// and Merge(b, a) always agree (spec.md SS8 invariant 4).
func Merge(a, b types.InviteListState) types.InviteListState {
	winner, loser := a, b
	switch {
	case b.CreatedAt > a.CreatedAt:
		winner, loser = b, a
	case b.CreatedAt == a.CreatedAt:
		da, db := contentDigest(a), contentDigest(b)
		if bytes.Compare(db[:], da[:]) > 0 {
			winner, loser = b, a
		}
	}

	out := types.InviteListState{
		Owner:        winner.Owner,
		Devices:      map[string]*types.DeviceEntry{},
		MainDeviceID: winner.MainDeviceID,
		Version:      winner.Version,
		CreatedAt:    winner.CreatedAt,
	}
	for id, entry := range winner.Devices {
		e := *entry
		out.Devices[id] = &e
	}

	removedByID := map[string]int64{}
	for _, r := range winner.Removed {
		removedByID[r.DeviceID] = r.Timestamp
	}
	for _, r := range loser.Removed {
		if ts, ok := removedByID[r.DeviceID]; !ok || r.Timestamp > ts {
			removedByID[r.DeviceID] = r.Timestamp
		}
	}
	// A device present only in the loser's snapshot survives the merge
	// unless a removal (from either side) outranks it.
	for id, entry := range loser.Devices {
		if _, ok := out.Devices[id]; ok {
			continue
		}
		if ts, removed := removedByID[id]; removed && ts >= loser.CreatedAt {
			continue
		}
		e := *entry
		out.Devices[id] = &e
	}
	for id, ts := range removedByID {
		if entry, ok := out.Devices[id]; ok && entry != nil {
			delete(out.Devices, id)
		}
		out.Removed = append(out.Removed, types.RemovedEntry{DeviceID: id, Timestamp: ts})
	}

	return out
}

// contentDigest hashes the parts of state that can differ between two
// concurrent edits, independent of map iteration order, so Merge's tie-break
// depends only on the two states being compared and not on which one the
// caller happened to pass as a or b.
func contentDigest(state types.InviteListState) [32]byte {
	ids := make([]string, 0, len(state.Devices))
	for id := range state.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf []byte
	buf = append(buf, state.Owner[:]...)
	buf = append(buf, []byte(state.MainDeviceID)...)
	buf = append(buf, byte(state.Version))
	for _, id := range ids {
		d := state.Devices[id]
		buf = append(buf, d.EphemeralPub[:]...)
		buf = append(buf, d.SharedSecret[:]...)
		buf = append(buf, []byte(d.DeviceID)...)
		buf = append(buf, []byte(d.Label)...)
	}
	return crypto.KDF1(buf, []byte("invitelist-merge-tiebreak"))
}

// ToEvent signs state as a replaceable kind-10078 event (spec.md SS4.4
// "toEvent"). EphemeralPriv fields are never serialized: a device's
// ephemeral private key is retained only by the device that generated it.
func ToEvent(ownerPriv types.PrivateKey, state types.InviteListState) (types.Event, error) {
	tags := []types.Tag{
		{"d", dTag},
		{"version", strconv.Itoa(state.Version)},
	}
	if state.MainDeviceID != "" {
		tags = append(tags, types.Tag{"main-device", state.MainDeviceID})
	}
	for _, entry := range state.Devices {
		tags = append(tags, types.Tag{
			"device",
			entry.EphemeralPub.Hex(),
			hex.EncodeToString(entry.SharedSecret[:]),
			entry.DeviceID,
			entry.Label,
		})
	}
	for _, r := range state.Removed {
		tags = append(tags, types.Tag{"removed", r.DeviceID, strconv.FormatInt(r.Timestamp, 10)})
	}

	e := types.Event{
		Kind:      types.InviteListKind,
		Tags:      tags,
		CreatedAt: state.CreatedAt,
	}
	return eventcodec.Finalize(ownerPriv, e)
}

// FromEvent parses a replaceable InviteList event back into an
// InviteListState. Every resulting DeviceEntry has a nil EphemeralPriv: the
// wire event never carries private material (spec.md SS4.4).
func FromEvent(e types.Event) (types.InviteListState, error) {
	if !eventcodec.Verify(e) {
		return types.InviteListState{}, ErrMalformedInviteList
	}
	if d, ok := e.Tag("d"); !ok || d != dTag {
		return types.InviteListState{}, ErrMalformedInviteList
	}

	state := types.InviteListState{
		Owner:     e.PubKey,
		Devices:   map[string]*types.DeviceEntry{},
		CreatedAt: e.CreatedAt,
		Version:   1,
	}

	for _, t := range e.Tags {
		switch t.Key() {
		case "version":
			v, err := strconv.Atoi(t.Value())
			if err != nil {
				return types.InviteListState{}, ErrMalformedInviteList
			}
			state.Version = v
		case "main-device":
			state.MainDeviceID = t.Value()
		case "device":
			// A malformed device tag is dropped, not fatal: it must not
			// discard the other, well-formed device/removed tags in the
			// same event (spec.md SS4.4).
			if len(t) < 5 {
				continue
			}
			eph, err := decodeHexPub(t[1])
			if err != nil {
				continue
			}
			secret, err := decodeHex32(t[2])
			if err != nil {
				continue
			}
			state.Devices[t[3]] = &types.DeviceEntry{
				EphemeralPub: eph,
				SharedSecret: secret,
				DeviceID:     t[3],
				Label:        t[4],
			}
		case "removed":
			if len(t) < 3 {
				continue
			}
			ts, err := strconv.ParseInt(t[2], 10, 64)
			if err != nil {
				continue
			}
			state.Removed = append(state.Removed, types.RemovedEntry{DeviceID: t[1], Timestamp: ts})
		}
	}

	return state, nil
}

func decodeHexPub(s string) (types.PublicKey, error) {
	var pub types.PublicKey
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(pub) {
		return pub, ErrMalformedInviteList
	}
	copy(pub[:], b)
	return pub, nil
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(out) {
		return out, ErrMalformedInviteList
	}
	copy(out[:], b)
	return out, nil
}
