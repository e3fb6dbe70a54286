package invitelist

import (
	"testing"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/eventcodec"
)

func genKeys(t *testing.T) (types.PrivateKey, types.PublicKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return priv, pub
}

func genDevice(t *testing.T, deviceID string) types.DeviceEntry {
	t.Helper()
	_, ephPub := genKeys(t)
	return types.DeviceEntry{
		EphemeralPub: ephPub,
		SharedSecret: [32]byte{1, 2, 3},
		DeviceID:     deviceID,
		Label:        "laptop",
	}
}

func TestToFromEventRoundTrip(t *testing.T) {
	ownerPriv, ownerPub := genKeys(t)
	state := New(ownerPub)
	AddDevice(&state, genDevice(t, "dev-1"), 100)
	AddDevice(&state, genDevice(t, "dev-2"), 200)
	state.MainDeviceID = "dev-1"

	e, err := ToEvent(ownerPriv, state)
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	if e.Kind != types.InviteListKind {
		t.Fatalf("kind = %d, want %d", e.Kind, types.InviteListKind)
	}

	back, err := FromEvent(e)
	if err != nil {
		t.Fatalf("FromEvent: %v", err)
	}
	if len(back.Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(back.Devices))
	}
	if back.MainDeviceID != "dev-1" {
		t.Fatalf("MainDeviceID = %q, want dev-1", back.MainDeviceID)
	}
	if back.Devices["dev-1"].EphemeralPriv != nil {
		t.Fatal("FromEvent must never populate EphemeralPriv")
	}
}

func TestFromEventRejectsBadSignature(t *testing.T) {
	ownerPriv, ownerPub := genKeys(t)
	state := New(ownerPub)
	AddDevice(&state, genDevice(t, "dev-1"), 100)

	e, err := ToEvent(ownerPriv, state)
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	e.Content = "tampered"

	if _, err := FromEvent(e); err != ErrMalformedInviteList {
		t.Fatalf("FromEvent on tampered event: err = %v, want ErrMalformedInviteList", err)
	}
}

func TestRemoveDeviceThenMergeDropsIt(t *testing.T) {
	_, ownerPub := genKeys(t)
	state := New(ownerPub)
	AddDevice(&state, genDevice(t, "dev-1"), 100)
	AddDevice(&state, genDevice(t, "dev-2"), 100)

	stale := state // snapshot before removal, as if another device merged an old copy
	stale.Devices = cloneDevices(state.Devices)

	RemoveDevice(&state, "dev-2", 200)

	merged := Merge(state, stale)
	if _, present := merged.Devices["dev-2"]; present {
		t.Fatal("dev-2 should have been dropped by the newer removal")
	}
	if _, present := merged.Devices["dev-1"]; !present {
		t.Fatal("dev-1 should survive the merge")
	}
}

func TestAddDeviceNoopForRemovedID(t *testing.T) {
	_, ownerPub := genKeys(t)
	state := New(ownerPub)
	AddDevice(&state, genDevice(t, "dev-1"), 100)
	RemoveDevice(&state, "dev-1", 200)

	AddDevice(&state, genDevice(t, "dev-1"), 300)

	if _, present := state.Devices["dev-1"]; present {
		t.Fatal("AddDevice resurrected a removed device id")
	}
}

func TestMergeIsCommutativeOnCreatedAtTie(t *testing.T) {
	_, ownerPub := genKeys(t)
	base := New(ownerPub)

	// Both sides edit the same device id at the same CreatedAt, with
	// different content, so the tie-break actually matters: whichever side
	// wins determines which label survives the merge.
	sideA := base
	sideA.Devices = cloneDevices(base.Devices)
	devA := genDevice(t, "dev-1")
	devA.Label = "phone-a"
	AddDevice(&sideA, devA, 100)

	sideB := base
	sideB.Devices = cloneDevices(base.Devices)
	devB := genDevice(t, "dev-1")
	devB.Label = "phone-b"
	AddDevice(&sideB, devB, 100)

	ab := Merge(sideA, sideB)
	ba := Merge(sideB, sideA)

	if ab.Devices["dev-1"] == nil || ba.Devices["dev-1"] == nil {
		t.Fatal("merged list is missing dev-1")
	}
	if ab.Devices["dev-1"].Label != ba.Devices["dev-1"].Label {
		t.Fatalf("Merge(a,b) picked label %q for dev-1, Merge(b,a) picked %q — merge is not commutative",
			ab.Devices["dev-1"].Label, ba.Devices["dev-1"].Label)
	}
}

func TestMergeUnionsDevicesAddedOnDifferentSides(t *testing.T) {
	_, ownerPub := genKeys(t)
	base := New(ownerPub)
	AddDevice(&base, genDevice(t, "dev-1"), 100)

	sideA := base
	sideA.Devices = cloneDevices(base.Devices)
	AddDevice(&sideA, genDevice(t, "dev-2"), 150)

	sideB := base
	sideB.Devices = cloneDevices(base.Devices)
	AddDevice(&sideB, genDevice(t, "dev-3"), 120)

	merged := Merge(sideA, sideB)
	for _, id := range []string{"dev-1", "dev-2", "dev-3"} {
		if _, ok := merged.Devices[id]; !ok {
			t.Fatalf("merged list missing %s", id)
		}
	}
}

func TestFromEventDropsMalformedTagsKeepsGoodOnes(t *testing.T) {
	ownerPriv, ownerPub := genKeys(t)
	good := genDevice(t, "dev-1")

	e, err := eventcodec.Finalize(ownerPriv, types.Event{
		Kind: types.InviteListKind,
		Tags: []types.Tag{
			{"d", dTag},
			{"version", "1"},
			{"device", good.EphemeralPub.Hex(), "0102030000000000000000000000000000000000000000000000000000000000", "dev-1", "laptop"},
			{"device", "not-hex", "also-not-hex", "dev-2"},
			{"removed", "dev-3", "200"},
			{"removed", "dev-4", "not-a-timestamp"},
		},
		CreatedAt: 100,
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	state, err := FromEvent(e)
	if err != nil {
		t.Fatalf("FromEvent: %v", err)
	}
	if len(state.Devices) != 1 {
		t.Fatalf("len(Devices) = %d, want 1 (malformed dev-2 tag should be dropped)", len(state.Devices))
	}
	if _, ok := state.Devices["dev-1"]; !ok {
		t.Fatal("well-formed dev-1 tag should have parsed despite the malformed dev-2 tag")
	}
	if len(state.Removed) != 1 || state.Removed[0].DeviceID != "dev-3" {
		t.Fatalf("Removed = %+v, want exactly dev-3 (malformed dev-4 tag should be dropped)", state.Removed)
	}
}

func cloneDevices(in map[string]*types.DeviceEntry) map[string]*types.DeviceEntry {
	out := map[string]*types.DeviceEntry{}
	for k, v := range in {
		e := *v
		out[k] = &e
	}
	return out
}
