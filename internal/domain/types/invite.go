package types

// Invite is the per-device advertisement a potential inviter publishes
// (spec.md SS4.3). SharedSecret is 32 raw bytes; its hex form is what
// travels in the event tag / URL fragment.
type Invite struct {
	InviterPub   PublicKey
	EphemeralPub PublicKey
	SharedSecret [32]byte
	DeviceID     string
	Label        string
	MaxUses      int
	UsedBy       map[string]bool // identity pubkey hex -> used
}

// InviteResponsePayload is the doubly-encrypted payload carried inside an
// invite response's inner event (spec.md SS4.3 step 2).
type InviteResponsePayload struct {
	SessionKey PublicKey `json:"sessionKey"`
	DeviceID   string    `json:"deviceId,omitempty"`
}

// DeviceEntry is one device's record inside an InviteList (spec.md SS3
// "InviteList").
type DeviceEntry struct {
	EphemeralPub          PublicKey
	SharedSecret          [32]byte
	DeviceID              string
	Label                 string
	EphemeralPriv         *PrivateKey // retained only locally, never serialized onto the wire event
}

// RemovedEntry records a device ID that has been revoked, with the time of
// revocation so merges can resolve conflicting re-adds (spec.md SS4.4).
type RemovedEntry struct {
	DeviceID  string
	Timestamp int64
}

// InviteListState is the owner-side device registry, persisted as a single
// replaceable kind-10078 event (spec.md SS3, SS4.4).
type InviteListState struct {
	Owner         PublicKey
	Devices       map[string]*DeviceEntry
	Removed       []RemovedEntry
	MainDeviceID  string
	Version       int
	CreatedAt     int64
}
