package fleet

import "time"

// Session is one inference session. DeviceID and ModelID are references
// by convention only; the store does not enforce that they exist.
type Session struct {
	ID        string         `json:"id"`
	DeviceID  string         `json:"deviceId"`
	ModelID   string         `json:"modelId"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Active reports whether the session has not ended.
func (s Session) Active() bool {
	return s.EndedAt == nil
}

func (s Session) clone() Session {
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	s.Metadata = cloneMetadata(s.Metadata)
	return s
}
