package store

import (
	"reflect"
	"testing"
	"time"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/fleet/events"
)

var (
	t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
	t2 = t0.Add(2 * time.Minute)
)

func strPtr(s string) *string                            { return &s }
func boolPtr(b bool) *bool                               { return &b }
func timePtr(t time.Time) *time.Time                     { return &t }
func statusPtr(s fleet.DeviceStatus) *fleet.DeviceStatus { return &s }

func TestDeviceRegisterInsertsAndReplaces(t *testing.T) {
	snap := fleet.NewSnapshot()

	snap, applied := Reduce(snap, events.DeviceRegister{Device: fleet.Device{
		ID: "d1", Name: "cam", Status: fleet.DeviceIdle, LastSeen: t0,
	}}, t0)
	if !applied {
		t.Fatal("expected register to apply")
	}
	if snap.Devices["d1"].Name != "cam" {
		t.Fatalf("unexpected device: %+v", snap.Devices["d1"])
	}

	// Re-registration replaces wholesale, not merges.
	snap, applied = Reduce(snap, events.DeviceRegister{Device: fleet.Device{
		ID: "d1", Status: fleet.DeviceBusy, LastSeen: t1,
	}}, t1)
	if !applied {
		t.Fatal("expected re-register to apply")
	}
	dev := snap.Devices["d1"]
	if dev.Name != "" || dev.Status != fleet.DeviceBusy {
		t.Fatalf("expected wholesale replace, got %+v", dev)
	}
}

func TestDeviceRegisterDefaultsLastSeen(t *testing.T) {
	snap, _ := Reduce(fleet.NewSnapshot(), events.DeviceRegister{Device: fleet.Device{
		ID: "d1", Status: fleet.DeviceIdle,
	}}, t1)
	if !snap.Devices["d1"].LastSeen.Equal(t1) {
		t.Fatalf("expected lastSeen %v, got %v", t1, snap.Devices["d1"].LastSeen)
	}
}

func TestDeviceUpdateMergesFields(t *testing.T) {
	snap := fleet.NewSnapshot().WithDevice(fleet.Device{
		ID:       "d1",
		Name:     "cam",
		Status:   fleet.DeviceIdle,
		LastSeen: t0,
		Metadata: map[string]any{"rack": "a3"},
	})

	snap, applied := Reduce(snap, events.DeviceUpdate{
		ID:     "d1",
		Status: statusPtr(fleet.DeviceBusy),
	}, t1)
	if !applied {
		t.Fatal("expected update to apply")
	}

	dev := snap.Devices["d1"]
	if dev.Status != fleet.DeviceBusy {
		t.Fatalf("expected busy, got %s", dev.Status)
	}
	if dev.Name != "cam" {
		t.Fatalf("name not preserved: %q", dev.Name)
	}
	if !reflect.DeepEqual(dev.Metadata, map[string]any{"rack": "a3"}) {
		t.Fatalf("metadata not preserved: %v", dev.Metadata)
	}
	if !dev.LastSeen.Equal(t1) {
		t.Fatalf("lastSeen not advanced to merge time: %v", dev.LastSeen)
	}
}

func TestDeviceUpdateAbsentIsNoop(t *testing.T) {
	before := fleet.NewSnapshot().WithDevice(fleet.Device{ID: "other", Status: fleet.DeviceIdle})

	after, applied := Reduce(before, events.DeviceUpdate{ID: "ghost", Name: strPtr("x")}, t1)
	if applied {
		t.Fatal("expected no-op for absent device")
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot changed on no-op: %+v vs %+v", before, after)
	}
}

func TestDeviceOffline(t *testing.T) {
	snap := fleet.NewSnapshot().WithDevice(fleet.Device{ID: "d1", Status: fleet.DeviceBusy, LastSeen: t0})

	snap, applied := Reduce(snap, events.DeviceOffline{ID: "d1"}, t1)
	if !applied {
		t.Fatal("expected offline to apply")
	}
	dev := snap.Devices["d1"]
	if dev.Status != fleet.DeviceOffline {
		t.Fatalf("expected offline, got %s", dev.Status)
	}
	if !dev.LastSeen.Equal(t1) {
		t.Fatalf("lastSeen not refreshed: %v", dev.LastSeen)
	}

	if _, applied := Reduce(snap, events.DeviceOffline{ID: "ghost"}, t2); applied {
		t.Fatal("expected no-op for absent device")
	}
}

func TestLastSeenMonotonic(t *testing.T) {
	snap := fleet.NewSnapshot().WithDevice(fleet.Device{ID: "d1", Status: fleet.DeviceIdle, LastSeen: t0})

	now := t0
	prev := t0
	evs := []events.Event{
		events.DeviceUpdate{ID: "d1", Status: statusPtr(fleet.DeviceBusy)},
		events.DeviceOffline{ID: "d1"},
		events.DeviceUpdate{ID: "d1", Status: statusPtr(fleet.DeviceIdle)},
		events.DeviceUpdate{ID: "d1", Name: strPtr("cam")},
	}
	for i, ev := range evs {
		now = now.Add(time.Second)
		var applied bool
		snap, applied = Reduce(snap, ev, now)
		if !applied {
			t.Fatalf("event %d did not apply", i)
		}
		seen := snap.Devices["d1"].LastSeen
		if seen.Before(prev) {
			t.Fatalf("lastSeen went backwards at event %d: %v < %v", i, seen, prev)
		}
		prev = seen
	}
}

func TestModelLoadedFlipsFlagOnly(t *testing.T) {
	snap := fleet.NewSnapshot().WithModel(fleet.Model{
		ID: "m1", Name: "kws", Path: "/models/kws.fbz", Backend: fleet.BackendAkida,
	})

	snap, applied := Reduce(snap, events.ModelLoaded{ID: "m1"}, t1)
	if !applied {
		t.Fatal("expected model.loaded to apply")
	}
	m := snap.Models["m1"]
	if !m.Loaded {
		t.Fatal("expected loaded=true by default")
	}
	if m.Backend != fleet.BackendAkida {
		t.Fatalf("backend must be immutable, got %s", m.Backend)
	}

	snap, _ = Reduce(snap, events.ModelLoaded{ID: "m1", Loaded: boolPtr(false)}, t2)
	if snap.Models["m1"].Loaded {
		t.Fatal("expected loaded=false")
	}

	if _, applied := Reduce(snap, events.ModelLoaded{ID: "ghost"}, t2); applied {
		t.Fatal("expected no-op for absent model")
	}
}

func TestSessionEndOverwritesEarlierEnd(t *testing.T) {
	snap := fleet.NewSnapshot().WithSession(fleet.Session{
		ID: "s1", DeviceID: "d1", ModelID: "m1", StartedAt: t0,
	})

	end1 := t0.Add(500 * time.Millisecond)
	snap, applied := Reduce(snap, events.SessionEnd{ID: "s1", EndedAt: timePtr(end1)}, t1)
	if !applied {
		t.Fatal("expected first end to apply")
	}
	if got := snap.Sessions["s1"].EndedAt; got == nil || !got.Equal(end1) {
		t.Fatalf("expected endedAt %v, got %v", end1, got)
	}

	// A later end event for an existing session overwrites the stamp.
	// There is no first-write-wins protection.
	end2 := t0.Add(900 * time.Millisecond)
	snap, applied = Reduce(snap, events.SessionEnd{ID: "s1", EndedAt: timePtr(end2)}, t2)
	if !applied {
		t.Fatal("expected second end to apply")
	}
	if got := snap.Sessions["s1"].EndedAt; got == nil || !got.Equal(end2) {
		t.Fatalf("expected endedAt overwritten to %v, got %v", end2, got)
	}
}

func TestSessionEndDefaultsToNow(t *testing.T) {
	snap := fleet.NewSnapshot().WithSession(fleet.Session{ID: "s1", StartedAt: t0})

	snap, _ = Reduce(snap, events.SessionEnd{ID: "s1"}, t1)
	if got := snap.Sessions["s1"].EndedAt; got == nil || !got.Equal(t1) {
		t.Fatalf("expected endedAt %v, got %v", t1, got)
	}

	if _, applied := Reduce(snap, events.SessionEnd{ID: "ghost"}, t1); applied {
		t.Fatal("expected no-op for absent session")
	}
}

func TestSessionStartKeepsActiveUnlessEndSupplied(t *testing.T) {
	snap, _ := Reduce(fleet.NewSnapshot(), events.SessionStart{Session: fleet.Session{
		ID: "s1", DeviceID: "d1", ModelID: "m1",
	}}, t0)

	sess := snap.Sessions["s1"]
	if !sess.Active() {
		t.Fatal("expected new session to be active")
	}
	if !sess.StartedAt.Equal(t0) {
		t.Fatalf("startedAt not defaulted: %v", sess.StartedAt)
	}
}

func TestSyncFullReplacesEverything(t *testing.T) {
	snap := fleet.NewSnapshot().
		WithDevice(fleet.Device{ID: "d1", Status: fleet.DeviceIdle}).
		WithModel(fleet.Model{ID: "m1", Backend: fleet.BackendCPU}).
		WithSession(fleet.Session{ID: "s1", StartedAt: t0})

	snap, applied := Reduce(snap, events.SyncFull{}, t1)
	if !applied {
		t.Fatal("sync.full must always apply")
	}
	if len(snap.Devices) != 0 || len(snap.Models) != 0 || len(snap.Sessions) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestUnknownEventIsNoop(t *testing.T) {
	before := fleet.NewSnapshot().WithDevice(fleet.Device{ID: "d1", Status: fleet.DeviceIdle})

	after, applied := Reduce(before, unknownEvent{}, t1)
	if applied {
		t.Fatal("unknown events must not apply")
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("unknown event changed the snapshot")
	}
}

type unknownEvent struct{}

func (unknownEvent) Kind() string { return "device.selfdestruct" }

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := fleet.NewSnapshot().WithDevice(fleet.Device{
		ID: "d1", Status: fleet.DeviceIdle, LastSeen: t0,
	})

	after, _ := Reduce(before, events.DeviceUpdate{ID: "d1", Status: statusPtr(fleet.DeviceBusy)}, t1)

	if before.Devices["d1"].Status != fleet.DeviceIdle {
		t.Fatal("input snapshot was mutated")
	}
	if after.Devices["d1"].Status != fleet.DeviceBusy {
		t.Fatal("output snapshot missing the update")
	}
}
