package hub

import (
	"log"

	"github.com/Resinat/Portwatch/internal/telemetry"
)

// Session turns one subscription into the frame sequence a client receives:
// a snapshot first, then update frames it does not already hold. When the hub
// dropped frames for the subscriber, the next delivery starts with a fresh
// snapshot so the client never keeps a series with a silent gap.
type Session struct {
	registry *telemetry.Registry
	sub      *Subscription
	cursor   *Cursor
	drops    int64
}

// NewSession binds a subscription to the registry it mirrors. The
// subscription must be taken before Start so no update is missed.
func NewSession(registry *telemetry.Registry, sub *Subscription) *Session {
	return &Session{registry: registry, sub: sub}
}

// Start returns the initial snapshot frame.
func (s *Session) Start() Frame {
	return s.resync()
}

// Next returns the frames to send for one frame received from the
// subscription. The result is empty when nothing in it is new.
func (s *Session) Next(in Frame) []Frame {
	var out []Frame
	if d := s.sub.Dropped(); d > s.drops {
		log.Printf("[hub] subscriber %s missed %d frames, resending snapshot", s.sub.ID, d-s.drops)
		out = append(out, s.resync())
	}
	if f, ok := s.cursor.Filter(in); ok {
		out = append(out, f)
	}
	return out
}

func (s *Session) resync() Frame {
	s.drops = s.sub.Dropped()
	snapshot := SnapshotFrame(s.registry)
	s.cursor = NewCursor(snapshot)
	return snapshot
}
