package eventcodec

import (
	"testing"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
)

func TestFinalizeVerifyRoundTrip(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	e := types.Event{
		Kind:    1,
		Tags:    []types.Tag{{"d", "some-tag"}},
		Content: "hello",
	}
	signed, err := Finalize(priv, e)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !Verify(signed) {
		t.Fatal("Verify rejected a freshly finalized event")
	}
}

func TestVerifyRejectsTamperedContent(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	signed, err := Finalize(priv, types.Event{Kind: 1, Content: "original"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	signed.Content = "tampered"
	if Verify(signed) {
		t.Fatal("Verify accepted an event with tampered content")
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	_, otherPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	signed, err := Finalize(priv, types.Event{Kind: 1, Content: "hello"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	signed.PubKey = otherPub
	if Verify(signed) {
		t.Fatal("Verify accepted an event attributed to the wrong signer")
	}
}
