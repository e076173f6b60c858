package fleet

import "time"

// DeviceStatus is the presence state reported by an edge device.
type DeviceStatus string

const (
	DeviceIdle    DeviceStatus = "idle"
	DeviceBusy    DeviceStatus = "busy"
	DeviceOffline DeviceStatus = "offline"
)

// Device is one edge-inference device tracked by the hub. Devices are
// never deleted; going away is the offline status, not removal.
type Device struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Status   DeviceStatus   `json:"status"`
	LastSeen time.Time      `json:"lastSeen"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// clone returns a copy whose metadata map is independent of the receiver.
func (d Device) clone() Device {
	d.Metadata = cloneMetadata(d.Metadata)
	return d
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
