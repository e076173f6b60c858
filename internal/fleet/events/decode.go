package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when the wire tag matches no declared event.
var ErrUnknownKind = errors.New("events: unknown event kind")

// ErrMissingID is returned when an event that addresses an entity by id
// arrives without one.
var ErrMissingID = errors.New("events: missing id")

// Decode turns a wire tag and raw JSON payload into a typed event. It is
// the single parse point for every inbound boundary (HTTP writes, MQTT
// ingest, subscriber read model); malformed payloads are rejected here and
// never reach the dispatcher.
func Decode(kind string, data []byte) (Event, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	switch kind {
	case KindDeviceRegister:
		var e DeviceRegister
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.Device.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindDeviceUpdate:
		var e DeviceUpdate
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindDeviceOffline:
		var e DeviceOffline
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindModelRegister:
		var e ModelRegister
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.Model.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindModelLoaded:
		var e ModelLoaded
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindSessionStart:
		var e SessionStart
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.Session.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindSessionEnd:
		var e SessionEnd
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		if e.ID == "" {
			return nil, ErrMissingID
		}
		return e, nil
	case KindSyncFull:
		var e SyncFull
		if err := unmarshal(kind, data, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func unmarshal(kind string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("events: decode %s: %w", kind, err)
	}
	return nil
}
