package store

import "ratchetlink/internal/domain/types"

// RotateSession installs next as record's active session (spec.md SS4.5
// "rotateSession"). If there is no active session yet, next is installed
// directly. If next shares its logical Name with the current active
// session, it replaces it in place (the same logical conversation simply
// advanced). Otherwise the current active session is demoted to
// InactiveSession — trimmed to at most one entry, so an older inactive
// session is dropped — and next becomes active.
func RotateSession(record *types.DeviceRecord, next types.SessionState) {
	if record.ActiveSession == nil {
		record.ActiveSession = &next
		return
	}
	if next.Name == record.ActiveSession.Name {
		record.ActiveSession = &next
		return
	}
	demoted := *record.ActiveSession
	record.InactiveSession = &demoted
	record.ActiveSession = &next
}
