package fleet

// Backend identifies the inference runtime a model artifact targets.
type Backend string

const (
	BackendAkida  Backend = "akida"
	BackendONNX   Backend = "onnx"
	BackendTFLite Backend = "tflite"
	BackendCPU    Backend = "cpu"
)

// ValidBackend reports whether b is one of the supported runtimes.
func ValidBackend(b Backend) bool {
	switch b {
	case BackendAkida, BackendONNX, BackendTFLite, BackendCPU:
		return true
	}
	return false
}

// Model is a registered model artifact. Backend is fixed at registration
// and never changed by load/unload events.
type Model struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Backend  Backend        `json:"backend"`
	Loaded   bool           `json:"loaded"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (m Model) clone() Model {
	m.Metadata = cloneMetadata(m.Metadata)
	return m
}
