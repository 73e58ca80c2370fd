package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/repomap/repomap/internal/project"
)

// DefaultBusCapacity bounds the delivery queue to the front end.
const DefaultBusCapacity = 64

// ErrBusClosed is returned by Next after Close.
var ErrBusClosed = errors.New("message bus closed")

// MessageType tags a delivery-channel message.
type MessageType string

const (
	// MessageTypeStatus indicates a project status transition.
	MessageTypeStatus MessageType = "status_changed"

	// MessageTypeProgress carries a coarse progress notification from a
	// running analysis.
	MessageTypeProgress MessageType = "progress"

	// MessageTypeProjectUpdated carries a freshly published snapshot.
	MessageTypeProjectUpdated MessageType = "project_updated"

	// MessageTypeAnalysisError indicates a whole-project analysis
	// failure.
	MessageTypeAnalysisError MessageType = "analysis_error"
)

// Message is one entry on the delivery channel to the front end.
type Message struct {
	Type      MessageType    `json:"type"`
	Project   string         `json:"project"`
	Timestamp time.Time      `json:"timestamp"`
	Status    project.Status `json:"status,omitempty"`

	// Stage and Percent accompany progress messages; Percent is -1
	// when unknown.
	Stage   string `json:"stage,omitempty"`
	Percent int    `json:"percent,omitempty"`

	// Info accompanies project-updated messages.
	Info *project.Info `json:"info,omitempty"`

	// Error accompanies analysis-error messages.
	Error string `json:"error,omitempty"`
}

// Bus is a bounded delivery queue consumed by a single reader.
//
// Producers never block: when the queue is full, the oldest pending
// message for the same project is dropped and replaced (last-write-wins
// per project). Only when no same-project message is pending does the
// globally oldest message go. The UI only ever needs the latest state,
// not history.
type Bus struct {
	mu       sync.Mutex
	queue    []Message
	capacity int
	closed   bool

	// notify wakes the single consumer; capacity 1 so publishers
	// never block on it.
	notify chan struct{}
}

// NewBus creates a bus with the given capacity (DefaultBusCapacity when
// <= 0).
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}
	return &Bus{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Publish enqueues a message, applying the drop-oldest-per-key policy on
// overflow. Publishing to a closed bus is a no-op.
func (b *Bus) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(b.queue) >= b.capacity {
		b.dropOldest(msg.Project)
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// dropOldest removes the oldest message for key, falling back to the
// globally oldest message. Caller holds the lock.
func (b *Bus) dropOldest(key string) {
	for i, m := range b.queue {
		if m.Project == key {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return
		}
	}
	b.queue = b.queue[1:]
}

// Next blocks until a message is available, the context is canceled, or
// the bus is closed. Intended for a single consumer.
func (b *Bus) Next(ctx context.Context) (Message, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return msg, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return Message{}, ErrBusClosed
		}

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-b.notify:
		}
	}
}

// TryNext returns a pending message without blocking.
func (b *Bus) TryNext() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return Message{}, false
	}
	msg := b.queue[0]
	b.queue = b.queue[1:]
	return msg, true
}

// Pending returns the number of queued messages.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close marks the bus closed and wakes the consumer. Pending messages
// can still be drained with TryNext.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}
