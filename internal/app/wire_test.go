package app

import (
	"testing"
	"time"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/ratchet"
)

func TestCreateIdentityThenKeystoreLoad(t *testing.T) {
	w, err := NewWire(Config{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}

	identity, err := w.CreateIdentity("a good passphrase")
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	loaded, err := w.Keystore.Load("a good passphrase")
	if err != nil {
		t.Fatalf("Keystore.Load: %v", err)
	}
	if loaded.Pub != identity.Pub {
		t.Fatal("loaded identity does not match the one CreateIdentity returned")
	}
}

func TestInviteAcceptListenEndToEndPersistsSessions(t *testing.T) {
	w, err := NewWire(Config{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}

	alicePriv, alicePub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	bobPriv, bobPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	alice := types.Identity{Pub: alicePub, Priv: alicePriv}
	bob := types.Identity{Pub: bobPub, Priv: bobPriv}

	inv, ephPriv, _, err := w.CreateInvite(alice, "alice-phone", "Alice's Phone")
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	sessions := make(chan *ratchet.Session, 1)
	unsub, err := w.ListenForInvite(&inv, alice, ephPriv, func(session *ratchet.Session, inviteePub types.PublicKey, deviceID string) {
		sessions <- session
	})
	if err != nil {
		t.Fatalf("ListenForInvite: %v", err)
	}
	defer unsub()

	bobSession, err := w.AcceptInvite(inv, bob, "bob-laptop")
	if err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}

	var aliceSession *ratchet.Session
	select {
	case aliceSession = <-sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alice's session")
	}

	received := make(chan string, 1)
	aliceSession.OnEvent(func(inner types.InnerEvent) {
		received <- inner.Content
	})

	outer, _, err := bobSession.Send("hello alice")
	if err != nil {
		t.Fatalf("bob Send: %v", err)
	}
	if err := w.Bus.Publish(outer); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "hello alice" {
			t.Fatalf("received %q, want %q", msg, "hello alice")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alice to receive bob's message")
	}

	aliceRecord, ok, err := w.Records.Load(bobPub)
	if err != nil || !ok {
		t.Fatalf("Records.Load(bob) after listen: ok=%v err=%v", ok, err)
	}
	if _, present := aliceRecord.Devices["bob-laptop"]; !present {
		t.Fatal("alice's UserRecord for bob is missing the bob-laptop device session")
	}

	bobRecord, ok, err := w.Records.Load(alicePub)
	if err != nil || !ok {
		t.Fatalf("Records.Load(alice) after accept: ok=%v err=%v", ok, err)
	}
	if _, present := bobRecord.Devices["bob-laptop"]; !present {
		t.Fatal("bob's UserRecord for alice is missing the bob-laptop device session")
	}
}

func TestRememberEphemeralPublishesInviteList(t *testing.T) {
	w, err := NewWire(Config{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}

	alicePriv, alicePub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	alice := types.Identity{Pub: alicePub, Priv: alicePriv}

	if _, _, _, err := w.CreateInvite(alice, "alice-phone", "Alice's Phone"); err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	reader, ok := w.Bus.(interface {
		Replaceable(types.PublicKey, int, string) (types.Event, bool)
	})
	if !ok {
		t.Fatal("default bus does not expose Replaceable")
	}
	e, found := reader.Replaceable(alicePub, types.InviteListKind, "double-ratchet/invite-list")
	if !found {
		t.Fatal("CreateInvite did not publish an InviteList event")
	}
	if d, _ := e.Tag("d"); d != "double-ratchet/invite-list" {
		t.Fatalf("InviteList event d-tag = %q", d)
	}
}
