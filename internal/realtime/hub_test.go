package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeSender struct {
	mu     sync.Mutex
	ready  bool
	frames [][]byte
	err    error
}

func newFakeSender() *fakeSender {
	return &fakeSender{ready: true}
}

func (s *fakeSender) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSender) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSender) frame(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

func TestRegisterDeliversConnectionAck(t *testing.T) {
	hub := NewHub(nil)
	sub := newFakeSender()

	id := hub.Register(sub)
	if id == "" {
		t.Fatal("expected a session id")
	}
	if sub.frameCount() != 1 {
		t.Fatalf("expected 1 ack frame, got %d", sub.frameCount())
	}

	var ack ConnectedAck
	if err := json.Unmarshal(sub.frame(0), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Type != AckType {
		t.Fatalf("unexpected ack type %q", ack.Type)
	}
	if ack.ClientID != id {
		t.Fatalf("ack clientId %q != session id %q", ack.ClientID, id)
	}
	if _, err := time.Parse(time.RFC3339, ack.Timestamp); err != nil {
		t.Fatalf("ack timestamp not RFC3339: %v", err)
	}
}

func TestPublishReachesEverySubscriberExactlyOnce(t *testing.T) {
	hub := NewHub(nil)

	const n = 8
	subs := make([]*fakeSender, n)
	for i := range subs {
		subs[i] = newFakeSender()
		hub.Register(subs[i])
	}

	hub.Publish("device.register", map[string]any{"id": "d1", "status": "idle"})

	var first []byte
	for i, sub := range subs {
		// ack + one broadcast
		if sub.frameCount() != 2 {
			t.Fatalf("subscriber %d: expected 2 frames, got %d", i, sub.frameCount())
		}
		frame := sub.frame(1)
		if first == nil {
			first = frame
		} else if string(frame) != string(first) {
			t.Fatalf("subscriber %d received a different payload", i)
		}
	}

	var env Envelope
	if err := json.Unmarshal(first, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "device.register" {
		t.Fatalf("unexpected envelope type %q", env.Type)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Fatalf("envelope timestamp not RFC3339: %v", err)
	}
}

func TestPublishSkipsNotReadySubscribers(t *testing.T) {
	hub := NewHub(nil)
	open := newFakeSender()
	closed := newFakeSender()
	hub.Register(open)
	hub.Register(closed)

	closed.mu.Lock()
	closed.ready = false
	closed.mu.Unlock()

	hub.Publish("model.loaded", map[string]any{"id": "m1"})

	if open.frameCount() != 2 {
		t.Fatalf("open subscriber: expected 2 frames, got %d", open.frameCount())
	}
	if closed.frameCount() != 1 {
		t.Fatalf("not-ready subscriber must be skipped, got %d frames", closed.frameCount())
	}
}

func TestSendErrorDoesNotAffectOthers(t *testing.T) {
	hub := NewHub(nil)
	broken := newFakeSender()
	healthy := newFakeSender()
	hub.Register(broken)
	hub.Register(healthy)

	broken.mu.Lock()
	broken.err = errors.New("pipe broken")
	broken.mu.Unlock()

	hub.Publish("session.start", map[string]any{"id": "s1"})

	if healthy.frameCount() != 2 {
		t.Fatalf("healthy subscriber: expected 2 frames, got %d", healthy.frameCount())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	sub := newFakeSender()
	id := hub.Register(sub)

	hub.Unregister(id)
	hub.Unregister(id)
	hub.Unregister("never-registered")

	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	hub.Publish("device.offline", map[string]any{"id": "d1"})
	if sub.frameCount() != 1 {
		t.Fatalf("unregistered subscriber must not receive events, got %d frames", sub.frameCount())
	}
}

// TestRegisterRacesPublish churns registrations and unregistrations while
// publishing. An in-flight publish may or may not reach a subscriber
// registered mid-flight; the only requirement is no deadlock or panic.
func TestRegisterRacesPublish(t *testing.T) {
	hub := NewHub(nil)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			id := hub.Register(newFakeSender())
			hub.Unregister(id)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			hub.Publish("device.update", map[string]any{"id": fmt.Sprintf("d%d", i)})
		}
	}()

	time.Sleep(100 * time.Millisecond)
	close(done)
	wg.Wait()
}
