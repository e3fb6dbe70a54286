// Package domain defines core data models and interfaces shared across the
// module. It contains plain types (wire/state) and contracts (interfaces)
// only; it never imports a concrete implementation package.
package domain

import (
	interfaces "ratchetlink/internal/domain/interfaces"
	types "ratchetlink/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PublicKey              = types.PublicKey
	PrivateKey             = types.PrivateKey
	Identity               = types.Identity
	Fingerprint            = types.Fingerprint
	Tag                    = types.Tag
	Event                  = types.Event
	InnerEvent             = types.InnerEvent
	Filter                 = types.Filter
	SkippedChain           = types.SkippedChain
	SessionState           = types.SessionState
	DeviceRecord           = types.DeviceRecord
	UserRecord             = types.UserRecord
	Invite                 = types.Invite
	InviteResponsePayload  = types.InviteResponsePayload
	DeviceEntry            = types.DeviceEntry
	RemovedEntry           = types.RemovedEntry
	InviteListState        = types.InviteListState
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	EventBus     = interfaces.EventBus
	EventHandler = interfaces.EventHandler
	Unsubscribe  = interfaces.Unsubscribe
	KVStore      = interfaces.KVStore
	Signer       = interfaces.Signer
	DH           = interfaces.DH
	AEAD         = interfaces.AEAD
	Encryptor    = interfaces.Encryptor
	Decryptor    = interfaces.Decryptor
)

const (
	// MaxSkippedPerChain is the per-chain skipped-key cap (spec.md SS4.2).
	MaxSkippedPerChain = types.MaxSkippedPerChain
	// MaxSkippedChains bounds the aggregate skipped-key cache (spec.md SS4.2).
	MaxSkippedChains = types.MaxSkippedChains
)
