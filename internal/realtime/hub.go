// Package realtime fans applied mutation events out to connected
// subscribers. The hub is transport-agnostic: a subscriber is anything
// that can report readiness and accept a marshaled frame.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"fleet-hub/internal/observability/metrics"
)

// Sender is one subscriber's delivery path. Send must not block the
// caller indefinitely; a slow subscriber is expected to drop frames in its
// own queue rather than stall fan-out.
type Sender interface {
	Ready() bool
	Send(data []byte) error
}

// Envelope is the wire shape of every broadcast message.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ConnectedAck is delivered once to each newly registered subscriber.
type ConnectedAck struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	Timestamp string `json:"timestamp"`
}

// AckType is the envelope type of the connection acknowledgement.
const AckType = "connected"

// Hub maintains the live subscriber registry. Register and Unregister may
// race freely with Publish; a publish iterates over a point-in-time copy
// of the registry, so a subscriber registered mid-publish may or may not
// receive that specific event.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]Sender
	clock  func() time.Time
	logger *log.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		subs:   make(map[string]Sender),
		clock:  time.Now,
		logger: logger,
	}
}

// Register admits a subscriber, assigns it an opaque session id and
// immediately delivers the connection acknowledgement. New subscribers
// receive no history; callers wanting the current state query it
// separately.
func (h *Hub) Register(s Sender) string {
	id := newSessionID()
	ack, err := json.Marshal(ConnectedAck{
		Type:      AckType,
		ClientID:  id,
		Timestamp: h.now(),
	})

	h.mu.Lock()
	h.subs[id] = s
	// The ack goes out under the lock so no concurrent publish can be
	// delivered ahead of it.
	if err == nil {
		if sendErr := s.Send(ack); sendErr != nil {
			h.logger.Printf("realtime: ack send to %s: %v", id, sendErr)
		}
	}
	h.mu.Unlock()

	metrics.SubscriberConnected()
	return id
}

// Unregister removes a subscriber. Unknown ids are a no-op.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		metrics.SubscriberDisconnected()
	}
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers one event to every currently registered subscriber.
// Delivery is best-effort per subscriber: a not-ready channel is skipped
// for this event, and a send error is logged without affecting delivery
// to the remaining subscribers or the mutation pipeline.
func (h *Hub) Publish(eventType string, payload any) {
	frame, err := json.Marshal(Envelope{
		Type:      eventType,
		Data:      payload,
		Timestamp: h.now(),
	})
	if err != nil {
		h.logger.Printf("realtime: marshal %s: %v", eventType, err)
		return
	}

	h.mu.Lock()
	targets := make(map[string]Sender, len(h.subs))
	for id, s := range h.subs {
		targets[id] = s
	}
	h.mu.Unlock()

	for id, s := range targets {
		if !s.Ready() {
			metrics.RecordBroadcastDropped()
			continue
		}
		if err := s.Send(frame); err != nil {
			h.logger.Printf("realtime: send %s to %s: %v", eventType, id, err)
			metrics.RecordBroadcastDropped()
		}
	}
}

func (h *Hub) now() string {
	return h.clock().UTC().Format(time.RFC3339)
}
