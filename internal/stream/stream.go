// Package stream provides the ordered event channel that carries status
// updates, response chunks, and structured data from a background pipeline to
// a single consumer. Producers never block on emit; backpressure is the
// transport reader's problem, not the pipeline's.
package stream

import (
	"context"
	"sync"
)

// EventType discriminates the wire representation of an event.
type EventType string

const (
	// EventStatus announces a pipeline stage transition.
	EventStatus EventType = "status"

	// EventChunk carries one fragment of generated response text.
	EventChunk EventType = "chunk"

	// EventData carries a structured payload keyed by name.
	EventData EventType = "data"
)

// Event is one unit of the stream. Exactly the fields for its type are set;
// the zero fields are omitted on the wire.
type Event struct {
	Type    EventType `json:"type"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Content string    `json:"content,omitempty"`
	Key     string    `json:"key,omitempty"`
	Value   any       `json:"value,omitempty"`
}

// Status builds a status event.
func Status(status, message string) Event {
	return Event{Type: EventStatus, Status: status, Message: message}
}

// Chunk builds a response-text chunk event.
func Chunk(content string) Event {
	return Event{Type: EventChunk, Content: content}
}

// Data builds a structured data event.
func Data(key string, value any) Event {
	return Event{Type: EventData, Key: key, Value: value}
}

// Stream is a FIFO event channel with one producer and one consumer. Emit
// appends without blocking (the buffer grows as needed), Close is idempotent,
// and Next drains remaining events after close before reporting exhaustion.
type Stream struct {
	mu     sync.Mutex
	events []Event
	closed bool
	wake   chan struct{}
}

// New creates an open, empty stream.
func New() *Stream {
	return &Stream{wake: make(chan struct{}, 1)}
}

// Emit appends an event to the stream. Events emitted after Close are
// dropped: a closed stream is terminal.
func (s *Stream) Emit(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.signal()
}

// Close marks the stream complete. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

// Next blocks until an event is available or the stream is closed and
// drained. The second return is false once no further events will arrive,
// including when ctx is cancelled while waiting.
func (s *Stream) Next(ctx context.Context) (Event, bool) {
	for {
		s.mu.Lock()
		if len(s.events) > 0 {
			e := s.events[0]
			s.events = s.events[1:]
			s.mu.Unlock()
			return e, true
		}
		if s.closed {
			s.mu.Unlock()
			return Event{}, false
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// signal wakes a waiting consumer. The buffered channel coalesces repeated
// signals; Next re-checks the buffer on every pass, so one wakeup is enough.
func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
