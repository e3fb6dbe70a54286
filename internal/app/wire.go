package app

import (
	"crypto/rand"
	"path/filepath"
	"time"

	"ratchetlink/internal/bus"
	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/invite"
	"ratchetlink/internal/invitelist"
	"ratchetlink/internal/ratchet"
	"ratchetlink/internal/store"
)

// replaceableReader is satisfied by bus implementations (like *bus.Memory)
// that expose direct access to the current value of a replaceable event,
// letting rememberEphemeral merge into the owner's live InviteList instead
// of overwriting it.
type replaceableReader interface {
	Replaceable(pubkey types.PublicKey, kind int, dTag string) (types.Event, bool)
}

// Wire bundles the event bus and file-backed stores for the CLI.
type Wire struct {
	Bus      interfaces.EventBus
	Keystore *store.Keystore
	Records  *store.UserRecordStore
}

// NewWire constructs the dependency graph from cfg. A nil cfg.Bus defaults
// to an in-memory bus, matching the "in-memory testing relay" collaborator
// spec.md SS1 calls out as external.
func NewWire(cfg Config) (*Wire, error) {
	eventBus := cfg.Bus
	if eventBus == nil {
		eventBus = bus.NewMemory()
	}

	identityKV := store.NewFileKVStore(filepath.Join(cfg.Home, "identity"))
	recordsKV := store.NewFileKVStore(filepath.Join(cfg.Home, "records"))

	return &Wire{
		Bus:      eventBus,
		Keystore: store.NewKeystore(identityKV),
		Records:  store.NewUserRecordStore(recordsKV),
	}, nil
}

// CreateIdentity generates a fresh long-term keypair and saves it under
// passphrase.
func (w *Wire) CreateIdentity(passphrase string) (types.Identity, error) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return types.Identity{}, err
	}
	identity := types.Identity{Pub: pub, Priv: priv}
	if err := w.Keystore.Save(passphrase, identity); err != nil {
		return types.Identity{}, err
	}
	return identity, nil
}

// CreateInvite generates a fresh ephemeral keypair and shared secret for
// deviceId, publishes the resulting Invite event, and returns it along with
// the ephemeral private key, which the caller must retain locally to later
// Listen for a response (spec.md SS4.3; EphemeralPriv is never recoverable
// from the bus once this call returns).
func (w *Wire) CreateInvite(identity types.Identity, deviceID, label string) (types.Invite, types.PrivateKey, types.Event, error) {
	ephPriv, ephPub, err := crypto.GenerateKeyPair()
	if err != nil {
		return types.Invite{}, types.PrivateKey{}, types.Event{}, err
	}
	var sharedSecret [32]byte
	if _, err := rand.Read(sharedSecret[:]); err != nil {
		return types.Invite{}, types.PrivateKey{}, types.Event{}, err
	}

	inv := types.Invite{
		InviterPub:   identity.Pub,
		EphemeralPub: ephPub,
		SharedSecret: sharedSecret,
		DeviceID:     deviceID,
		Label:        label,
		UsedBy:       map[string]bool{},
	}

	e, err := invite.ToEvent(identity.Priv, inv)
	if err != nil {
		return types.Invite{}, types.PrivateKey{}, types.Event{}, err
	}
	if err := w.Bus.Publish(e); err != nil {
		return types.Invite{}, types.PrivateKey{}, types.Event{}, err
	}

	if err := w.rememberEphemeral(identity, deviceID, inv, ephPriv, label); err != nil {
		return types.Invite{}, types.PrivateKey{}, types.Event{}, err
	}
	return inv, ephPriv, e, nil
}

// rememberEphemeral adds the newly generated invite's device entry to the
// owner's InviteList, starting from whatever is already published, and
// republishes the result (spec.md SS4.4). The published event does not carry
// the ephemeral private key and this function keeps no copy of it.
func (w *Wire) rememberEphemeral(identity types.Identity, deviceID string, inv types.Invite, ephPriv types.PrivateKey, label string) error {
	list := invitelist.New(identity.Pub)
	if existing, ok := w.Bus.(replaceableReader); ok {
		if e, found := existing.Replaceable(identity.Pub, types.InviteListKind, "double-ratchet/invite-list"); found {
			if parsed, err := invitelist.FromEvent(e); err == nil {
				list = parsed
			}
		}
	}
	invitelist.AddDevice(&list, types.DeviceEntry{
		EphemeralPub:  inv.EphemeralPub,
		SharedSecret:  inv.SharedSecret,
		DeviceID:      deviceID,
		Label:         label,
		EphemeralPriv: &ephPriv,
	}, time.Now().Unix())

	e, err := invitelist.ToEvent(identity.Priv, list)
	if err != nil {
		return err
	}
	return w.Bus.Publish(e)
}

// AcceptInvite is the invitee-side half of the handshake (spec.md SS4.3
// "Accept"): it generates a session key, publishes the signed response
// envelope, persists the resulting session under the inviter's UserRecord,
// and returns the resulting Session.
func (w *Wire) AcceptInvite(inv types.Invite, inviteeIdentity types.Identity, deviceID string) (*ratchet.Session, error) {
	session, envelope, err := invite.Accept(w.Bus.Subscribe, inv, inviteeIdentity.Pub, interfaces.Encryptor{Key: &inviteeIdentity.Priv}, deviceID)
	if err != nil {
		return nil, err
	}
	if err := w.Bus.Publish(envelope); err != nil {
		return nil, err
	}
	if err := w.saveSession(inv.InviterPub, deviceID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListenForInvite is the inviter-side half (spec.md SS4.3 "Listen"). It
// wraps onSession so every accepted session is persisted under the
// accepting device's UserRecord before the caller's callback runs.
func (w *Wire) ListenForInvite(inv *types.Invite, inviterIdentity types.Identity, ephemeralPriv types.PrivateKey, onSession invite.SessionCallback) (interfaces.Unsubscribe, error) {
	wrapped := func(session *ratchet.Session, inviteePub types.PublicKey, deviceID string) {
		if err := w.saveSession(inviteePub, deviceID, session); err != nil {
			return
		}
		onSession(session, inviteePub, deviceID)
	}
	unsub, err := invite.Listen(w.Bus.Subscribe, inv, ephemeralPriv, interfaces.Decryptor{Key: &inviterIdentity.Priv}, wrapped)
	return interfaces.Unsubscribe(unsub), err
}

// saveSession persists session's current state into peer's UserRecord under
// deviceID, demoting whatever session previously occupied that device slot
// (spec.md SS4.5).
func (w *Wire) saveSession(peer types.PublicKey, deviceID string, session *ratchet.Session) error {
	record, err := w.Records.GetOrCreate(peer)
	if err != nil {
		return err
	}
	dev, ok := record.Devices[deviceID]
	if !ok {
		dev = &types.DeviceRecord{DeviceID: deviceID}
		record.Devices[deviceID] = dev
	}
	state := session.State()
	store.RotateSession(dev, state)
	return w.Records.Save(record)
}
