// Package apihttp exposes the hub's write boundary and query surface over
// HTTP. Writes are translated into typed mutation events before they
// reach the dispatcher; malformed payloads are rejected here and reported
// to the caller only.
package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"fleet-hub/internal/fleet/application"
	"fleet-hub/internal/fleet/events"
	"fleet-hub/internal/observability/metrics"
)

// EventsHandler accepts mutation events.
type EventsHandler struct {
	dispatcher *application.Dispatcher
	logger     *log.Logger
}

// NewEventsHandler constructs the write-boundary handler.
func NewEventsHandler(dispatcher *application.Dispatcher, logger *log.Logger) (*EventsHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("events handler: nil dispatcher")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EventsHandler{dispatcher: dispatcher, logger: logger}, nil
}

type eventRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServeHTTP handles POST /api/v1/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("events: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req eventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.reject(w, "invalid json", err)
		return
	}
	if req.Type == "" {
		h.reject(w, "type is required", errors.New("empty type"))
		return
	}

	ev, err := events.Decode(req.Type, req.Data)
	if err != nil {
		h.reject(w, "invalid payload", err)
		return
	}

	_, applied := h.dispatcher.Apply(ev)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"applied": applied})
}

func (h *EventsHandler) reject(w http.ResponseWriter, msg string, err error) {
	h.logger.Printf("events: %s: %v", msg, err)
	metrics.RecordIngestRejected("http")
	http.Error(w, msg, http.StatusBadRequest)
}

// StateHandler serves the full snapshot.
type StateHandler struct {
	dispatcher *application.Dispatcher
}

// NewStateHandler constructs a StateHandler.
func NewStateHandler(dispatcher *application.Dispatcher) (*StateHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("state handler: nil dispatcher")
	}
	return &StateHandler{dispatcher: dispatcher}, nil
}

// ServeHTTP handles GET /api/v1/state.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.dispatcher.Snapshot())
}

// DevicesHandler serves device listings and single-device lookups.
type DevicesHandler struct {
	dispatcher *application.Dispatcher
}

// NewDevicesHandler constructs a DevicesHandler.
func NewDevicesHandler(dispatcher *application.Dispatcher) (*DevicesHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("devices handler: nil dispatcher")
	}
	return &DevicesHandler{dispatcher: dispatcher}, nil
}

// ServeHTTP handles GET /api/v1/devices and GET /api/v1/devices/{id}.
func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if id := r.PathValue("id"); id != "" {
		dev, ok := h.dispatcher.Device(id)
		if !ok {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		writeJSON(w, dev)
		return
	}
	writeJSON(w, h.dispatcher.Devices())
}

// ModelsHandler serves model listings and single-model lookups.
type ModelsHandler struct {
	dispatcher *application.Dispatcher
}

// NewModelsHandler constructs a ModelsHandler.
func NewModelsHandler(dispatcher *application.Dispatcher) (*ModelsHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("models handler: nil dispatcher")
	}
	return &ModelsHandler{dispatcher: dispatcher}, nil
}

// ServeHTTP handles GET /api/v1/models and GET /api/v1/models/{id}.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if id := r.PathValue("id"); id != "" {
		m, ok := h.dispatcher.Model(id)
		if !ok {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		writeJSON(w, m)
		return
	}
	writeJSON(w, h.dispatcher.Models())
}

// SessionsHandler serves session listings and single-session lookups.
type SessionsHandler struct {
	dispatcher *application.Dispatcher
}

// NewSessionsHandler constructs a SessionsHandler.
func NewSessionsHandler(dispatcher *application.Dispatcher) (*SessionsHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("sessions handler: nil dispatcher")
	}
	return &SessionsHandler{dispatcher: dispatcher}, nil
}

// ServeHTTP handles GET /api/v1/sessions and GET /api/v1/sessions/{id}.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if id := r.PathValue("id"); id != "" {
		s, ok := h.dispatcher.Session(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, s)
		return
	}
	writeJSON(w, h.dispatcher.Sessions())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
