package store

import (
	"testing"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
)

func TestKeystoreSaveLoadRoundTrip(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	ks := NewKeystore(kv)

	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	identity := types.Identity{Pub: pub, Priv: priv}

	if err := ks.Save("correct horse battery staple", identity); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := ks.Load("correct horse battery staple")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Pub != identity.Pub || got.Priv != identity.Priv {
		t.Fatal("identity mismatch after round trip")
	}
}

func TestKeystoreWrongPassphraseFails(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	ks := NewKeystore(kv)

	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if err := ks.Save("correct", types.Identity{Pub: pub, Priv: priv}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := ks.Load("wrong"); err != ErrWrongPassphrase {
		t.Fatalf("Load with wrong passphrase: err = %v, want ErrWrongPassphrase", err)
	}
}
