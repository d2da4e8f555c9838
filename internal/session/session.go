package session

import (
	"context"
	"time"

	"github.com/rickgao/price-relay/internal/model"
)

// DefaultCapacity is the per-client event queue size.
const DefaultCapacity = 100

// Session is the delivery state of one downstream consumer.
type Session struct {
	id        string
	queue     *Queue[model.Event]
	createdAt time.Time
	onDrop    func()
}

// New creates a session with an event queue of the given capacity.
// onDrop, if non-nil, is called each time an event is evicted on overflow.
func New(id string, capacity int, onDrop func()) *Session {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Session{
		id:        id,
		queue:     NewQueue[model.Event](capacity),
		createdAt: time.Now(),
		onDrop:    onDrop,
	}
}

// ID returns the client identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was registered.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Queue exposes the underlying event queue.
func (s *Session) Queue() *Queue[model.Event] { return s.queue }

// Enqueue adds an event using the drop-oldest policy. It never blocks.
func (s *Session) Enqueue(ev model.Event) {
	if s.queue.Push(ev) && s.onDrop != nil {
		s.onDrop()
	}
}

// Drain forwards events to sink one at a time until the session is closed,
// ctx is cancelled, or sink fails.
//
// Returns nil when the session was closed, ctx.Err() on cancellation, and the
// sink error otherwise.
func (s *Session) Drain(ctx context.Context, sink func(model.Event) error) error {
	for {
		ev, ok := s.queue.Receive(ctx)
		if !ok {
			return ctx.Err()
		}
		if err := sink(ev); err != nil {
			return err
		}
	}
}

// Close stops delivery; any waiting Drain returns.
func (s *Session) Close() {
	s.queue.Close()
}
