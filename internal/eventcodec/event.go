// Package eventcodec computes the canonical id and signature of a signed
// event, shared by the ratchet, invite, and invite-list packages so each
// doesn't reimplement the substrate's signing convention.
package eventcodec

import (
	"encoding/hex"
	"encoding/json"
	"errors"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
)

var ErrBadSignature = errors.New("eventcodec: signature does not verify")

type canonicalPayload struct {
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
}

func canonicalBytes(e types.Event) []byte {
	tags := make([][]string, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = []string(t)
	}
	b, _ := json.Marshal(canonicalPayload{
		PubKey:    e.PubKey.Hex(),
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Tags:      tags,
		Content:   e.Content,
	})
	return b
}

// ComputeID returns the hex content-id of e, independent of e.Sig.
func ComputeID(e types.Event) string {
	sum := crypto.KDF1(canonicalBytes(e), []byte("ratchetlink-event-id"))
	return hex.EncodeToString(sum[:])
}

// Finalize sets e's PubKey to priv's public half, computes its id, and
// signs the id with priv, readying it for Publish.
func Finalize(priv types.PrivateKey, e types.Event) (types.Event, error) {
	pub, err := crypto.PublicFromPrivate(priv)
	if err != nil {
		return types.Event{}, err
	}
	e.PubKey = pub
	e.ID = ComputeID(e)
	idBytes, err := hex.DecodeString(e.ID)
	if err != nil {
		return types.Event{}, err
	}
	e.Sig = crypto.Sign(priv, idBytes)
	return e, nil
}

// Verify reports whether e's id matches its contents and its signature
// verifies under e.PubKey.
func Verify(e types.Event) bool {
	if ComputeID(e) != e.ID {
		return false
	}
	idBytes, err := hex.DecodeString(e.ID)
	if err != nil {
		return false
	}
	return crypto.Verify(e.PubKey, idBytes, e.Sig)
}
