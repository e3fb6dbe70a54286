package store

import (
	"encoding/json"
	"strings"

	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/ratchet"
)

// recordKeyPrefix is the persisted-layout prefix for UserRecords
// (spec.md SS6 "Persisted layout": "<version>/user/<identityHex>").
const recordKeyPrefix = "v1/user/"

func recordKey(pub types.PublicKey) string {
	return recordKeyPrefix + pub.Hex()
}

// UserRecordStore owns the identityPub -> UserRecord mapping (spec.md
// SS4.5). It persists each UserRecord as a single JSON blob under the
// underlying KVStore.
type UserRecordStore struct {
	kv interfaces.KVStore
}

// NewUserRecordStore returns a UserRecordStore backed by kv.
func NewUserRecordStore(kv interfaces.KVStore) *UserRecordStore {
	return &UserRecordStore{kv: kv}
}

// GetOrCreate returns the stored UserRecord for pub, or a freshly
// initialized empty one if none has been saved yet.
func (s *UserRecordStore) GetOrCreate(pub types.PublicKey) (types.UserRecord, error) {
	record, ok, err := s.Load(pub)
	if err != nil {
		return types.UserRecord{}, err
	}
	if ok {
		return record, nil
	}
	return types.UserRecord{PublicKey: pub, Devices: map[string]*types.DeviceRecord{}}, nil
}

// Load returns the stored UserRecord for pub, if any.
func (s *UserRecordStore) Load(pub types.PublicKey) (types.UserRecord, bool, error) {
	data, ok, err := s.kv.Get(recordKey(pub))
	if err != nil || !ok {
		return types.UserRecord{}, ok, err
	}
	var record types.UserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return types.UserRecord{}, false, err
	}
	if record.Devices == nil {
		record.Devices = map[string]*types.DeviceRecord{}
	}
	return record, true, nil
}

// Save serializes record under its own PublicKey's key.
func (s *UserRecordStore) Save(record types.UserRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.kv.Put(recordKey(record.PublicKey), data)
}

// LoadAll enumerates every persisted UserRecord by the recordKeyPrefix
// (spec.md SS4.5 "loadAll").
func (s *UserRecordStore) LoadAll() ([]types.UserRecord, error) {
	keys, err := s.kv.List(recordKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]types.UserRecord, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, recordKeyPrefix) {
			continue
		}
		data, ok, err := s.kv.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var record types.UserRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		if record.Devices == nil {
			record.Devices = map[string]*types.DeviceRecord{}
		}
		out = append(out, record)
	}
	return out, nil
}

// LoadedDevice pairs a device's persisted bookkeeping with its sessions
// rebound to a live subscribe capability.
type LoadedDevice struct {
	DeviceID string
	Active   *ratchet.Session
	Inactive *ratchet.Session
}

// LoadSessions loads pub's UserRecord and rebinds every stored
// SessionState to subscribe, reopening the subscriptions each live Session
// needs (spec.md SS4.5 "load... reconstructs sessions by rebinding them to
// the given subscribe capability").
func (s *UserRecordStore) LoadSessions(pub types.PublicKey, subscribe ratchet.SubscribeFunc) ([]LoadedDevice, error) {
	record, ok, err := s.Load(pub)
	if err != nil || !ok {
		return nil, err
	}

	out := make([]LoadedDevice, 0, len(record.Devices))
	for id, dev := range record.Devices {
		loaded := LoadedDevice{DeviceID: id}
		if dev.ActiveSession != nil {
			loaded.Active = ratchet.FromState(subscribe, *dev.ActiveSession)
		}
		if dev.InactiveSession != nil {
			loaded.Inactive = ratchet.FromState(subscribe, *dev.InactiveSession)
		}
		out = append(out, loaded)
	}
	return out, nil
}
