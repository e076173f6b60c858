package fleet

// Snapshot is the complete hub state at a point in time: three independent
// id-keyed collections. A Snapshot handed out by the store is immutable by
// contract; writers always build a fresh one and never touch a published
// snapshot's maps.
type Snapshot struct {
	Devices  map[string]Device  `json:"devices"`
	Models   map[string]Model   `json:"models"`
	Sessions map[string]Session `json:"sessions"`
}

// NewSnapshot returns an empty snapshot with all collections allocated.
func NewSnapshot() Snapshot {
	return Snapshot{
		Devices:  make(map[string]Device),
		Models:   make(map[string]Model),
		Sessions: make(map[string]Session),
	}
}

// WithDevice returns a snapshot identical to s except for dev. Only the
// devices collection is copied; the other collections are shared.
func (s Snapshot) WithDevice(dev Device) Snapshot {
	devices := make(map[string]Device, len(s.Devices)+1)
	for k, v := range s.Devices {
		devices[k] = v
	}
	devices[dev.ID] = dev.clone()
	s.Devices = devices
	return s
}

// WithModel returns a snapshot identical to s except for m.
func (s Snapshot) WithModel(m Model) Snapshot {
	models := make(map[string]Model, len(s.Models)+1)
	for k, v := range s.Models {
		models[k] = v
	}
	models[m.ID] = m.clone()
	s.Models = models
	return s
}

// WithSession returns a snapshot identical to s except for sess.
func (s Snapshot) WithSession(sess Session) Snapshot {
	sessions := make(map[string]Session, len(s.Sessions)+1)
	for k, v := range s.Sessions {
		sessions[k] = v
	}
	sessions[sess.ID] = sess.clone()
	s.Sessions = sessions
	return s
}

// Clone returns a deep copy. Used where a caller needs a snapshot it may
// hold across arbitrary time, e.g. the subscriber-session read model.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Devices:  make(map[string]Device, len(s.Devices)),
		Models:   make(map[string]Model, len(s.Models)),
		Sessions: make(map[string]Session, len(s.Sessions)),
	}
	for k, v := range s.Devices {
		out.Devices[k] = v.clone()
	}
	for k, v := range s.Models {
		out.Models[k] = v.clone()
	}
	for k, v := range s.Sessions {
		out.Sessions[k] = v.clone()
	}
	return out
}
