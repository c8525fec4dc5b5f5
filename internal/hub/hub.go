package hub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/Resinat/Portwatch/internal/feed"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultBuffer is the per-subscriber frame buffer.
const DefaultBuffer = 64

// Subscription is one subscriber's frame channel.
type Subscription struct {
	ID uuid.UUID
	C  <-chan Frame

	ch      chan Frame
	dropped atomic.Int64
}

// Dropped returns the number of frames dropped for this subscriber.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Hub broadcasts frames to subscribers. Publishing never blocks: a frame is
// dropped for any subscriber whose buffer is full.
type Hub struct {
	buffer int
	subs   *xsync.Map[uuid.UUID, *Subscription]

	// closeMu excludes channel close from in-flight publishes.
	closeMu sync.RWMutex
}

// New creates a hub. buffer <= 0 uses DefaultBuffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   xsync.NewMap[uuid.UUID, *Subscription](),
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Frame, h.buffer)
	s := &Subscription{ID: uuid.New(), C: ch, ch: ch}
	h.subs.Store(s.ID, s)
	metrics.Subscribers.Set(float64(h.subs.Size()))
	return s
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.closeMu.Lock()
	s, ok := h.subs.LoadAndDelete(id)
	if ok {
		close(s.ch)
	}
	h.closeMu.Unlock()
	if !ok {
		return
	}
	metrics.Subscribers.Set(float64(h.subs.Size()))
	if n := s.dropped.Load(); n > 0 {
		log.Printf("[hub] subscriber %s left after %d dropped frames", id, n)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	return h.subs.Size()
}

// Publish sends frame to every subscriber.
func (h *Hub) Publish(frame Frame) {
	h.closeMu.RLock()
	defer h.closeMu.RUnlock()
	h.subs.Range(func(_ uuid.UUID, s *Subscription) bool {
		select {
		case s.ch <- frame:
		default:
			s.dropped.Add(1)
			metrics.SubscriberDrops.Inc()
		}
		return true
	})
}

// OnUpdate implements feed.Observer.
func (h *Hub) OnUpdate(u feed.Update) {
	if h.subs.Size() == 0 {
		return
	}
	if frame, ok := UpdateFrameOf(u); ok {
		h.Publish(frame)
	}
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	var ids []uuid.UUID
	h.subs.Range(func(id uuid.UUID, _ *Subscription) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		h.Unsubscribe(id)
	}
}
