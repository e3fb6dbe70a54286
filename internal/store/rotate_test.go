package store

import (
	"testing"

	"ratchetlink/internal/domain/types"
)

func TestRotateSessionInstallsWhenNoneActive(t *testing.T) {
	record := &types.DeviceRecord{}
	next := types.SessionState{Name: "a"}

	RotateSession(record, next)

	if record.ActiveSession == nil || record.ActiveSession.Name != "a" {
		t.Fatalf("ActiveSession = %+v, want Name=a", record.ActiveSession)
	}
	if record.InactiveSession != nil {
		t.Fatal("InactiveSession should remain nil on first install")
	}
}

func TestRotateSessionReplacesInPlaceForSameName(t *testing.T) {
	record := &types.DeviceRecord{ActiveSession: &types.SessionState{Name: "a", SendingChainMessageNumber: 1}}

	RotateSession(record, types.SessionState{Name: "a", SendingChainMessageNumber: 2})

	if record.ActiveSession.SendingChainMessageNumber != 2 {
		t.Fatalf("ActiveSession not replaced in place: %+v", record.ActiveSession)
	}
	if record.InactiveSession != nil {
		t.Fatal("same-name rotation must not populate InactiveSession")
	}
}

func TestRotateSessionDemotesDifferentName(t *testing.T) {
	record := &types.DeviceRecord{ActiveSession: &types.SessionState{Name: "old"}}

	RotateSession(record, types.SessionState{Name: "new"})

	if record.ActiveSession.Name != "new" {
		t.Fatalf("ActiveSession.Name = %q, want new", record.ActiveSession.Name)
	}
	if record.InactiveSession == nil || record.InactiveSession.Name != "old" {
		t.Fatalf("InactiveSession = %+v, want Name=old", record.InactiveSession)
	}
}

func TestRotateSessionTrimsInactiveToOne(t *testing.T) {
	record := &types.DeviceRecord{ActiveSession: &types.SessionState{Name: "a"}}

	RotateSession(record, types.SessionState{Name: "b"})
	RotateSession(record, types.SessionState{Name: "c"})

	if record.ActiveSession.Name != "c" {
		t.Fatalf("ActiveSession.Name = %q, want c", record.ActiveSession.Name)
	}
	if record.InactiveSession == nil || record.InactiveSession.Name != "b" {
		t.Fatalf("InactiveSession = %+v, want Name=b (oldest inactive dropped)", record.InactiveSession)
	}
}
