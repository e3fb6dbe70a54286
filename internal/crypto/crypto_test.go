package crypto

import (
	"bytes"
	"testing"
)

func TestSharedSecretIsSymmetric(t *testing.T) {
	aPriv, aPub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	bPriv, bPub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	ab, err := SharedSecret(aPriv, bPub)
	if err != nil {
		t.Fatalf("SharedSecret(a,b): %v", err)
	}
	ba, err := SharedSecret(bPriv, aPub)
	if err != nil {
		t.Fatalf("SharedSecret(b,a): %v", err)
	}
	if ab != ba {
		t.Fatal("DH is not symmetric")
	}
}

func TestPublicFromPrivateMatchesGenerateKeyPair(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	derived, err := PublicFromPrivate(priv)
	if err != nil {
		t.Fatalf("PublicFromPrivate: %v", err)
	}
	if derived != pub {
		t.Fatal("derived public key does not match generated one")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x11}, 32))

	sealed, err := Seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := Open(key, sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "hello" {
		t.Fatalf("Open = %q, want hello", pt)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x22}, 32))

	sealed, err := Seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF

	if _, err := Open(key, sealed); err != ErrAuthFailed {
		t.Fatalf("Open tampered ciphertext: err = %v, want ErrAuthFailed", err)
	}
}

func TestEnvelopeSealOpenRoundTrip(t *testing.T) {
	key, err := EnvelopeKeySchedule([]byte("shared secret material"), "test-info")
	if err != nil {
		t.Fatalf("EnvelopeKeySchedule: %v", err)
	}
	sealed, err := EnvelopeSeal(key, []byte("plaintext"), []byte("aad"))
	if err != nil {
		t.Fatalf("EnvelopeSeal: %v", err)
	}
	pt, err := EnvelopeOpen(key, sealed, []byte("aad"))
	if err != nil {
		t.Fatalf("EnvelopeOpen: %v", err)
	}
	if string(pt) != "plaintext" {
		t.Fatalf("EnvelopeOpen = %q, want plaintext", pt)
	}
}

func TestEnvelopeOpenRejectsWrongAAD(t *testing.T) {
	key, err := EnvelopeKeySchedule([]byte("shared secret material"), "test-info")
	if err != nil {
		t.Fatalf("EnvelopeKeySchedule: %v", err)
	}
	sealed, err := EnvelopeSeal(key, []byte("plaintext"), []byte("aad-a"))
	if err != nil {
		t.Fatalf("EnvelopeSeal: %v", err)
	}
	if _, err := EnvelopeOpen(key, sealed, []byte("aad-b")); err == nil {
		t.Fatal("EnvelopeOpen accepted mismatched additional data")
	}
}

func TestKDF2ProducesDistinctKeys(t *testing.T) {
	a, b := KDF2([]byte("input"), []byte("salt"))
	if a == b {
		t.Fatal("KDF2 returned identical keys")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	msg := []byte("an event to sign")
	sig := Sign(priv, msg)
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if !Verify(pub, msg, sig) {
		t.Fatal("Verify rejected a valid signature")
	}
	if Verify(pub, []byte("a different message"), sig) {
		t.Fatal("Verify accepted a signature over the wrong message")
	}
}
