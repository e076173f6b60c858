package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/fleet/events"
	"fleet-hub/internal/fleet/store"
	"fleet-hub/internal/realtime"
)

// SessionState is the lifecycle state of a subscriber session.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateOpen         SessionState = "open"
	// StateTerminated is reached when retries are exhausted or the caller
	// disconnects explicitly. No further automatic attempts happen.
	StateTerminated SessionState = "terminated"
)

// ClientConn is the minimal connection surface the session needs.
type ClientConn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens subscriber connections. Injected so tests can fail and
// succeed dials deterministically.
type Dialer interface {
	Dial(url string) (ClientConn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(url string) (ClientConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return gorillaConn{conn}, nil
}

type gorillaConn struct {
	ws *websocket.Conn
}

func (c gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c gorillaConn) Close() error { return c.ws.Close() }

// SessionConfig configures a subscriber session.
type SessionConfig struct {
	URL string
	// BackoffBase is the delay before the first reconnect attempt; each
	// subsequent failure doubles it.
	BackoffBase time.Duration
	// MaxAttempts caps consecutive reconnect attempts before the session
	// goes terminal. A successful connection resets the count.
	MaxAttempts int
	Dialer      Dialer
	Logger      *log.Logger
}

// Session is a client-side subscriber: it maintains the streaming
// connection, replays every broadcast event through the shared reducer
// into a local read model, and reconnects with exponential backoff so the
// local state converges back onto the server's after a drop.
type Session struct {
	url         string
	backoffBase time.Duration
	maxAttempts int
	dialer      Dialer
	logger      *log.Logger

	// afterFunc schedules the reconnect timer; replaced in tests.
	afterFunc func(time.Duration, func()) *time.Timer

	mu       sync.Mutex
	state    SessionState
	attempt  int
	timer    *time.Timer
	conn     ClientConn
	clientID string
	snap     fleet.Snapshot
}

// NewSession constructs a session in the disconnected state.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.URL == "" {
		return nil, errors.New("ws session: empty url")
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Dialer == nil {
		cfg.Dialer = gorillaDialer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Session{
		url:         cfg.URL,
		backoffBase: cfg.BackoffBase,
		maxAttempts: cfg.MaxAttempts,
		dialer:      cfg.Dialer,
		logger:      cfg.Logger,
		afterFunc:   time.AfterFunc,
		state:       StateDisconnected,
		snap:        fleet.NewSnapshot(),
	}, nil
}

// Connect starts the session. Only valid from the disconnected state.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return errors.New("ws session: connect from state " + string(state))
	}
	s.state = StateConnecting
	s.mu.Unlock()

	go s.dial()
	return nil
}

// Disconnect moves the session to the terminal state from anywhere: it
// cancels any pending reconnect timer, closes a live connection, and
// guarantees no further messages are processed.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = StateTerminated
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClientID returns the id assigned by the hub's connection ack, empty
// until the first ack arrives.
func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// Snapshot returns the local read model. Like the server's snapshots it
// is immutable once returned.
func (s *Session) Snapshot() fleet.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Session) dial() {
	conn, err := s.dialer.Dial(s.url)

	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		s.logger.Printf("ws session: dial %s: %v", s.url, err)
		s.state = StateDisconnected
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return
	}
	s.state = StateOpen
	s.attempt = 0
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)
}

// scheduleReconnectLocked arms the backoff timer. Caller holds s.mu.
func (s *Session) scheduleReconnectLocked() {
	s.attempt++
	if s.attempt > s.maxAttempts {
		s.logger.Printf("ws session: giving up after %d attempts", s.maxAttempts)
		s.state = StateTerminated
		return
	}
	delay := s.backoffBase << (s.attempt - 1)
	s.timer = s.afterFunc(delay, s.onReconnectTimer)
}

// onReconnectTimer fires from the backoff timer. The state may have moved
// to terminated between schedule and fire, so it re-checks under the lock
// before acting.
func (s *Session) onReconnectTimer() {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = StateConnecting
	s.mu.Unlock()

	s.dial()
}

func (s *Session) readLoop(conn ClientConn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			// An explicit disconnect already closed the connection; the
			// read error it provokes must not schedule anything.
			if s.state == StateTerminated || s.conn != conn {
				s.mu.Unlock()
				return
			}
			s.conn = nil
			s.state = StateDisconnected
			s.scheduleReconnectLocked()
			s.mu.Unlock()
			return
		}
		s.handleMessage(conn, data)
	}
}

func (s *Session) handleMessage(conn ClientConn, data []byte) {
	var env struct {
		Type     string          `json:"type"`
		Data     json.RawMessage `json:"data"`
		ClientID string          `json:"clientId"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Printf("ws session: bad frame: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A message still in flight across an explicit disconnect is dropped.
	if s.state != StateOpen || s.conn != conn {
		return
	}

	if env.Type == realtime.AckType {
		s.clientID = env.ClientID
		return
	}

	ev, err := events.Decode(env.Type, env.Data)
	if err != nil {
		s.logger.Printf("ws session: decode %s: %v", env.Type, err)
		return
	}
	s.snap, _ = store.Reduce(s.snap, ev, time.Now().UTC())
}
