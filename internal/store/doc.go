// Package store provides file-backed persistence for device/user
// bookkeeping and passphrase-protected identity storage.
//
// It implements the KVStore adapter the rest of the module treats as an
// external collaborator (spec.md SS1, SS6), plus two concrete collaborators
// built on top of it: Keystore for long-term identity keys, and
// UserRecordStore for the rotating per-device session state (spec.md SS4.5).
// All methods are concurrency-safe via internal locking.
package store
