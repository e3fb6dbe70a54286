package ratchet

import (
	"encoding/hex"
	"testing"

	"ratchetlink/internal/bus"
	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
)

func genIdentity(t *testing.T) (types.PrivateKey, types.PublicKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return priv, pub
}

// TestOneShotSend is scenario S1: alice sends one message, bob decrypts it.
func TestOneShotSend(t *testing.T) {
	relay := bus.NewMemory()
	aliceKey, alicePub := genIdentity(t)
	bobKey, bobPub := genIdentity(t)

	var shared [32]byte

	alice, err := Init(relay.Subscribe, bobPub, aliceKey, true, shared, "alice-to-bob")
	if err != nil {
		t.Fatalf("alice init: %v", err)
	}
	bob, err := Init(relay.Subscribe, alicePub, bobKey, false, shared, "bob-from-alice")
	if err != nil {
		t.Fatalf("bob init: %v", err)
	}

	var received *types.InnerEvent
	bob.OnEvent(func(e types.InnerEvent) { received = &e })

	event, _, err := alice.Send("hello bob")
	if err != nil {
		t.Fatalf("alice.Send: %v", err)
	}
	if err := relay.Publish(event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received == nil {
		t.Fatal("bob never received a decrypted event")
	}
	if received.Content != "hello bob" {
		t.Fatalf("content = %q, want %q", received.Content, "hello bob")
	}
}

// TestBidirectionalRotation is scenario S2.
func TestBidirectionalRotation(t *testing.T) {
	relay := bus.NewMemory()
	aliceKey, alicePub := genIdentity(t)
	bobKey, bobPub := genIdentity(t)
	var shared [32]byte

	alice, _ := Init(relay.Subscribe, bobPub, aliceKey, true, shared, "a")
	bob, _ := Init(relay.Subscribe, alicePub, bobKey, false, shared, "b")

	var bobGot, aliceGot *types.InnerEvent
	bob.OnEvent(func(e types.InnerEvent) { bobGot = &e })
	alice.OnEvent(func(e types.InnerEvent) { aliceGot = &e })

	e, _, err := alice.Send("hello bob")
	if err != nil {
		t.Fatalf("alice.Send: %v", err)
	}
	relay.Publish(e)
	if bobGot == nil || bobGot.Content != "hello bob" {
		t.Fatalf("bob did not receive first message: %+v", bobGot)
	}

	f, _, err := bob.Send("hi alice")
	if err != nil {
		t.Fatalf("bob.Send: %v", err)
	}
	relay.Publish(f)
	if aliceGot == nil || aliceGot.Content != "hi alice" {
		t.Fatalf("alice did not receive reply: %+v", aliceGot)
	}

	aliceState := alice.State()
	if aliceState.TheirCurrentRatchetPub == nil || *aliceState.TheirCurrentRatchetPub != f.PubKey {
		t.Fatalf("alice.theirCurrentRatchetPublic = %v, want %v", aliceState.TheirCurrentRatchetPub, f.PubKey)
	}
}

// TestOutOfOrderDelivery is scenario S3: permuted delivery order is
// preserved in onEvent, not the send order.
func TestOutOfOrderDelivery(t *testing.T) {
	relay := bus.NewMemory()
	aliceKey, alicePub := genIdentity(t)
	bobKey, bobPub := genIdentity(t)
	var shared [32]byte

	alice, _ := Init(relay.Subscribe, bobPub, aliceKey, true, shared, "a")
	bob, _ := Init(nil, alicePub, bobKey, false, shared, "b")

	var delivered []string
	bob.OnEvent(func(e types.InnerEvent) { delivered = append(delivered, e.Content) })

	e1, _, _ := alice.Send("one")
	e2, _, _ := alice.Send("two")
	e3, _, _ := alice.Send("three")

	for _, e := range []types.Event{e3, e1, e2} {
		if _, err := bob.DecryptEvent(e); err != nil {
			t.Fatalf("bob.DecryptEvent: %v", err)
		}
	}

	want := []string{"three", "one", "two"}
	if len(delivered) != len(want) {
		t.Fatalf("delivered = %v, want %v", delivered, want)
	}
	for i := range want {
		if delivered[i] != want[i] {
			t.Fatalf("delivered[%d] = %q, want %q", i, delivered[i], want[i])
		}
	}
}

// TestUnrelatedEventLeavesStateUnchanged is invariant 5.
func TestUnrelatedEventLeavesStateUnchanged(t *testing.T) {
	_, alicePub := genIdentity(t)
	bobKey, bobPub := genIdentity(t)
	_, strangerPub := genIdentity(t)
	var shared [32]byte

	bob, _ := Init(nil, alicePub, bobKey, false, shared, "b")
	before := bob.State()

	foreign := types.Event{
		Kind:      types.MessageKind,
		PubKey:    strangerPub,
		Content:   "00",
		Tags:      []types.Tag{{"n", "0"}, {"prev", "0"}},
		CreatedAt: 0,
	}

	inner, err := bob.DecryptEvent(foreign)
	if err != nil {
		t.Fatalf("DecryptEvent: %v", err)
	}
	if inner != nil {
		t.Fatalf("expected nil inner event for unrelated sender, got %+v", inner)
	}

	after := bob.State()
	if before.TheirCurrentRatchetPub != after.TheirCurrentRatchetPub {
		t.Fatal("theirCurrentRatchetPub changed on an unrelated event")
	}
	if after.ReceivingChainKey != nil {
		t.Fatal("receivingChainKey became set from an unrelated event")
	}
}

// TestCorruptedMessageDoesNotDesyncChain is invariant 5: a failed decrypt
// must leave the receiving chain untouched, so a later, well-formed message
// still decrypts instead of being permanently stranded past a one-off
// corrupted delivery.
func TestCorruptedMessageDoesNotDesyncChain(t *testing.T) {
	relay := bus.NewMemory()
	aliceKey, alicePub := genIdentity(t)
	bobKey, bobPub := genIdentity(t)
	var shared [32]byte

	alice, _ := Init(relay.Subscribe, bobPub, aliceKey, true, shared, "a")
	bob, _ := Init(nil, alicePub, bobKey, false, shared, "b")

	e1, _, err := alice.Send("one")
	if err != nil {
		t.Fatalf("alice.Send: %v", err)
	}
	if _, err := bob.DecryptEvent(e1); err != nil {
		t.Fatalf("bob.DecryptEvent(e1): %v", err)
	}
	before := bob.State()

	e2, _, err := alice.Send("two")
	if err != nil {
		t.Fatalf("alice.Send: %v", err)
	}
	ct, err := hex.DecodeString(e2.Content)
	if err != nil {
		t.Fatalf("decode e2 content: %v", err)
	}
	ct[len(ct)-1] ^= 0xFF
	e2.Content = hex.EncodeToString(ct)

	inner, err := bob.DecryptEvent(e2)
	if err != nil {
		t.Fatalf("bob.DecryptEvent(corrupted e2): %v", err)
	}
	if inner != nil {
		t.Fatal("expected nil inner event for a corrupted ciphertext")
	}

	after := bob.State()
	if after.ReceivingChainMessageNumber != before.ReceivingChainMessageNumber {
		t.Fatalf("ReceivingChainMessageNumber advanced on a failed decrypt: before=%d after=%d",
			before.ReceivingChainMessageNumber, after.ReceivingChainMessageNumber)
	}
	if *after.ReceivingChainKey != *before.ReceivingChainKey {
		t.Fatal("ReceivingChainKey changed on a failed decrypt")
	}

	var received *types.InnerEvent
	bob.OnEvent(func(e types.InnerEvent) { received = &e })

	e3, _, err := alice.Send("three")
	if err != nil {
		t.Fatalf("alice.Send: %v", err)
	}
	if _, err := bob.DecryptEvent(e3); err != nil {
		t.Fatalf("bob.DecryptEvent(e3): %v", err)
	}
	if received == nil || received.Content != "three" {
		t.Fatalf("bob failed to decrypt a later message after a corrupted one: %+v", received)
	}
}

// TestSerializeRoundTrip is invariant 3.
func TestSerializeRoundTrip(t *testing.T) {
	relay := bus.NewMemory()
	aliceKey, alicePub := genIdentity(t)
	bobKey, bobPub := genIdentity(t)
	var shared [32]byte

	alice, _ := Init(relay.Subscribe, bobPub, aliceKey, true, shared, "a")
	bob, _ := Init(nil, alicePub, bobKey, false, shared, "b")

	e, _, err := alice.Send("round trip me")
	if err != nil {
		t.Fatalf("alice.Send: %v", err)
	}

	data, err := SerializeSessionState(bob.State())
	if err != nil {
		t.Fatalf("SerializeSessionState: %v", err)
	}
	restored, err := DeserializeSessionState(data)
	if err != nil {
		t.Fatalf("DeserializeSessionState: %v", err)
	}

	inner, _, err := DecryptEventWithState(restored, e)
	if err != nil {
		t.Fatalf("DecryptEventWithState: %v", err)
	}
	if inner == nil || inner.Content != "round trip me" {
		t.Fatalf("decrypted = %+v, want content %q", inner, "round trip me")
	}
}
