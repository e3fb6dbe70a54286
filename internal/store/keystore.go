package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
)

const (
	identityKey = "identity"

	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	saltSize      = 16

	keystoreFormatVersion = 1
)

// ErrWrongPassphrase is returned by Load when the passphrase is incorrect
// or the stored blob has been tampered with.
var ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted identity")

// blob is the on-disk JSON structure holding the ciphertext and the Argon2
// parameters used to derive its key-encryption-key.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	Cipher []byte `json:"cipher"`
}

// Keystore persists a single long-term Identity under a passphrase-derived
// key, collapsing the teacher's scrypt and Argon2 identity-encryption paths
// into one Argon2id construction (see DESIGN.md).
type Keystore struct {
	kv interfaces.KVStore
}

// NewKeystore returns a Keystore backed by kv.
func NewKeystore(kv interfaces.KVStore) *Keystore {
	return &Keystore{kv: kv}
}

// Save encrypts identity under passphrase and writes it to the underlying
// KVStore.
func (k *Keystore) Save(passphrase string, identity types.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return err
	}
	key := argon2.IDKey([]byte(passphrase), salt[:], argon2Time, argon2Memory, argon2Threads, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	cipher := aead.Seal(nonce, nonce, raw, salt[:])

	data, err := json.Marshal(blob{V: keystoreFormatVersion, Salt: salt[:], Cipher: cipher})
	if err != nil {
		return err
	}
	return k.kv.Put(identityKey, data)
}

// Load decrypts the stored identity using passphrase.
func (k *Keystore) Load(passphrase string) (types.Identity, error) {
	data, ok, err := k.kv.Get(identityKey)
	if err != nil {
		return types.Identity{}, err
	}
	if !ok {
		return types.Identity{}, errors.New("store: no identity saved")
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return types.Identity{}, err
	}
	if b.V > keystoreFormatVersion {
		return types.Identity{}, fmt.Errorf("store: unsupported keystore version %d", b.V)
	}
	if len(b.Cipher) < chacha20poly1305.NonceSize {
		return types.Identity{}, ErrWrongPassphrase
	}

	key := argon2.IDKey([]byte(passphrase), b.Salt, argon2Time, argon2Memory, argon2Threads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return types.Identity{}, err
	}
	nonce, ct := b.Cipher[:chacha20poly1305.NonceSize], b.Cipher[chacha20poly1305.NonceSize:]
	raw, err := aead.Open(nil, nonce, ct, b.Salt)
	if err != nil {
		return types.Identity{}, ErrWrongPassphrase
	}

	var identity types.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return types.Identity{}, err
	}
	return identity, nil
}
