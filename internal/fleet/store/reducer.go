// Package store implements the reducer over the hub's state: a pure total
// function from (snapshot, mutation event) to a new snapshot. The reducer
// has no error channel; an event whose referenced entity is absent is a
// normal race (e.g. an end event for a session the store never saw after a
// restart) and reduces to a no-op.
package store

import (
	"time"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/fleet/events"
)

// Reduce applies ev to snap and returns the resulting snapshot together
// with whether the event changed state. The input snapshot is never
// mutated; collections are copied on write at the granularity of the
// affected collection and entry. A false result means the caller must not
// broadcast the event: subscribers only ever see mutations that happened.
func Reduce(snap fleet.Snapshot, ev events.Event, now time.Time) (fleet.Snapshot, bool) {
	switch e := ev.(type) {
	case events.DeviceRegister:
		dev := e.Device
		if dev.LastSeen.IsZero() {
			dev.LastSeen = now
		}
		return snap.WithDevice(dev), true

	case events.DeviceUpdate:
		dev, ok := snap.Devices[e.ID]
		if !ok {
			return snap, false
		}
		if e.Name != nil {
			dev.Name = *e.Name
		}
		if e.Status != nil {
			dev.Status = *e.Status
		}
		if e.Metadata != nil {
			dev.Metadata = e.Metadata
		}
		if e.LastSeen != nil {
			dev.LastSeen = *e.LastSeen
		} else {
			dev.LastSeen = now
		}
		return snap.WithDevice(dev), true

	case events.DeviceOffline:
		dev, ok := snap.Devices[e.ID]
		if !ok {
			return snap, false
		}
		dev.Status = fleet.DeviceOffline
		dev.LastSeen = now
		return snap.WithDevice(dev), true

	case events.ModelRegister:
		return snap.WithModel(e.Model), true

	case events.ModelLoaded:
		m, ok := snap.Models[e.ID]
		if !ok {
			return snap, false
		}
		m.Loaded = e.Loaded == nil || *e.Loaded
		return snap.WithModel(m), true

	case events.SessionStart:
		sess := e.Session
		if sess.StartedAt.IsZero() {
			sess.StartedAt = now
		}
		return snap.WithSession(sess), true

	case events.SessionEnd:
		sess, ok := snap.Sessions[e.ID]
		if !ok {
			return snap, false
		}
		endedAt := now
		if e.EndedAt != nil {
			endedAt = *e.EndedAt
		}
		sess.EndedAt = &endedAt
		return snap.WithSession(sess), true

	case events.SyncFull:
		return e.Snapshot(), true
	}

	// Unknown events are absorbed, not failed.
	return snap, false
}
