package application

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/fleet/events"
	"fleet-hub/internal/fleet/store"
	"fleet-hub/internal/observability/metrics"
)

// Broadcaster receives every applied mutation for fan-out to subscribers.
type Broadcaster interface {
	Publish(eventType string, payload any)
}

// Dispatcher owns the canonical snapshot and serializes all mutations
// against it. Mutations are applied strictly one at a time in arrival
// order; the store update and the decision to broadcast form one critical
// section, so subscribers observe events in exactly the order they were
// applied. Reads never take the mutation lock: the current snapshot is
// published through an atomic pointer and is immutable once published.
type Dispatcher struct {
	mu     sync.Mutex
	snap   atomic.Pointer[fleet.Snapshot]
	hub    Broadcaster
	clock  func() time.Time
	logger *log.Logger
}

// NewDispatcher constructs a dispatcher with an empty snapshot.
func NewDispatcher(hub Broadcaster, logger *log.Logger) (*Dispatcher, error) {
	if hub == nil {
		return nil, errors.New("dispatcher: nil broadcaster")
	}
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{hub: hub, clock: time.Now, logger: logger}
	initial := fleet.NewSnapshot()
	d.snap.Store(&initial)
	return d, nil
}

// Apply reduces ev against the current snapshot. It returns the snapshot
// in effect after the call and whether the event changed state. Applied
// events are forwarded to the broadcaster; no-ops are absorbed silently so
// subscribers never see phantom events for entities that never changed.
func (d *Dispatcher) Apply(ev events.Event) (fleet.Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur := d.snap.Load()
	next, applied := store.Reduce(*cur, ev, d.clock().UTC())
	if !applied {
		metrics.RecordEventNoop(ev.Kind())
		return *cur, false
	}

	d.snap.Store(&next)
	metrics.RecordEventApplied(ev.Kind())
	d.hub.Publish(ev.Kind(), ev)
	return next, true
}

// Snapshot returns the current snapshot. The returned value is immutable
// by contract and safe to read concurrently with mutations.
func (d *Dispatcher) Snapshot() fleet.Snapshot {
	return *d.snap.Load()
}

// Devices lists all known devices in unspecified order.
func (d *Dispatcher) Devices() []fleet.Device {
	snap := d.snap.Load()
	out := make([]fleet.Device, 0, len(snap.Devices))
	for _, dev := range snap.Devices {
		out = append(out, dev)
	}
	return out
}

// Models lists all registered models in unspecified order.
func (d *Dispatcher) Models() []fleet.Model {
	snap := d.snap.Load()
	out := make([]fleet.Model, 0, len(snap.Models))
	for _, m := range snap.Models {
		out = append(out, m)
	}
	return out
}

// Sessions lists all known sessions in unspecified order.
func (d *Dispatcher) Sessions() []fleet.Session {
	snap := d.snap.Load()
	out := make([]fleet.Session, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		out = append(out, s)
	}
	return out
}

// Device looks up one device by id.
func (d *Dispatcher) Device(id string) (fleet.Device, bool) {
	dev, ok := d.snap.Load().Devices[id]
	return dev, ok
}

// Model looks up one model by id.
func (d *Dispatcher) Model(id string) (fleet.Model, bool) {
	m, ok := d.snap.Load().Models[id]
	return m, ok
}

// Session looks up one session by id.
func (d *Dispatcher) Session(id string) (fleet.Session, bool) {
	s, ok := d.snap.Load().Sessions[id]
	return s, ok
}
