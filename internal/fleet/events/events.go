package events

import (
	"time"

	fleet "fleet-hub/internal/fleet/domain"
)

// Event is one typed mutation request for the hub state. The set of
// implementations is closed: every event the reducer understands is
// declared in this package, and the reducer treats anything else as a
// no-op.
type Event interface {
	// Kind returns the wire tag for this event, e.g. "device.register".
	Kind() string
}

// Wire tags for every mutation kind.
const (
	KindDeviceRegister = "device.register"
	KindDeviceUpdate   = "device.update"
	KindDeviceOffline  = "device.offline"
	KindModelRegister  = "model.register"
	KindModelLoaded    = "model.loaded"
	KindSessionStart   = "session.start"
	KindSessionEnd     = "session.end"
	KindSyncFull       = "sync.full"
)

// DeviceRegister inserts or wholesale-replaces a device.
type DeviceRegister struct {
	fleet.Device
}

func (DeviceRegister) Kind() string { return KindDeviceRegister }

// DeviceUpdate shallow-merges the supplied fields into an existing device.
// Nil fields are left untouched; LastSeen defaults to the merge time.
type DeviceUpdate struct {
	ID       string              `json:"id"`
	Name     *string             `json:"name,omitempty"`
	Status   *fleet.DeviceStatus `json:"status,omitempty"`
	LastSeen *time.Time          `json:"lastSeen,omitempty"`
	Metadata map[string]any      `json:"metadata,omitempty"`
}

func (DeviceUpdate) Kind() string { return KindDeviceUpdate }

// DeviceOffline marks an existing device offline.
type DeviceOffline struct {
	ID string `json:"id"`
}

func (DeviceOffline) Kind() string { return KindDeviceOffline }

// ModelRegister inserts or wholesale-replaces a model artifact.
type ModelRegister struct {
	fleet.Model
}

func (ModelRegister) Kind() string { return KindModelRegister }

// ModelLoaded flips the loaded flag of an existing model. A nil Loaded
// means true.
type ModelLoaded struct {
	ID     string `json:"id"`
	Loaded *bool  `json:"loaded,omitempty"`
}

func (ModelLoaded) Kind() string { return KindModelLoaded }

// SessionStart inserts or wholesale-replaces an inference session.
type SessionStart struct {
	fleet.Session
}

func (SessionStart) Kind() string { return KindSessionStart }

// SessionEnd stamps EndedAt on an existing session. A nil EndedAt means
// the time of application. A later SessionEnd for the same id overwrites
// the earlier stamp; there is deliberately no first-write-wins guard.
type SessionEnd struct {
	ID      string     `json:"id"`
	EndedAt *time.Time `json:"endedAt,omitempty"`
}

func (SessionEnd) Kind() string { return KindSessionEnd }

// SyncFull replaces the entire snapshot, used for full state resync.
type SyncFull struct {
	Devices  map[string]fleet.Device  `json:"devices"`
	Models   map[string]fleet.Model   `json:"models"`
	Sessions map[string]fleet.Session `json:"sessions"`
}

func (SyncFull) Kind() string { return KindSyncFull }

// Snapshot assembles the replacement snapshot, normalizing absent
// collections to empty maps.
func (e SyncFull) Snapshot() fleet.Snapshot {
	snap := fleet.Snapshot{
		Devices:  e.Devices,
		Models:   e.Models,
		Sessions: e.Sessions,
	}
	if snap.Devices == nil {
		snap.Devices = make(map[string]fleet.Device)
	}
	if snap.Models == nil {
		snap.Models = make(map[string]fleet.Model)
	}
	if snap.Sessions == nil {
		snap.Sessions = make(map[string]fleet.Session)
	}
	return snap
}
