// Package events provides the event bus the sync layer publishes on. The
// CLI (or any other surface) observes progress, outcomes, and mutations as a
// passive subscriber; nothing in the sync layer renders.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType defines the types of events that can be emitted.
type EventType string

const (
	EventUploadProgress EventType = "upload_progress"
	EventUploadOutcome  EventType = "upload_outcome"
	EventMutation       EventType = "mutation"
	EventRefresh        EventType = "refresh"
)

const defaultBuffer = 256

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// UploadProgressEvent carries the aggregate and per-file percentages for an
// active upload session. PerFile values mirror Overall during a real
// transfer; the transport does not expose true per-file granularity.
type UploadProgressEvent struct {
	BaseEvent
	SessionID string
	Overall   int
	PerFile   map[string]int
}

// UploadOutcomeEvent is the terminal event for an upload session. Exactly
// one is delivered per session.
type UploadOutcomeEvent struct {
	BaseEvent
	SessionID string
	Kind      string // "success", "server_error", "network_error", "aborted"
	Message   string
}

// MutationEvent reports a create/update/delete against an entity list,
// including optimistic applications whose remote call failed.
type MutationEvent struct {
	BaseEvent
	Entity   string // "catalog" or "behavior"
	Op       string // "create", "update", "delete"
	Key      string
	Diverged bool // local state applied despite a remote failure
	Err      error
}

// RefreshEvent reports a wholesale list replacement from the server.
type RefreshEvent struct {
	BaseEvent
	Entity string
	Count  int
}

// Bus manages event subscriptions and publishing. Publishing never blocks;
// events to a full subscriber buffer are dropped and counted.
type Bus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to every event.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends an event to all matching subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}

	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
func (b *Bus) Unsubscribe(eventType EventType, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			subs[i] = subs[len(subs)-1]
			b.subscribers[eventType] = subs[:len(subs)-1]
			break
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// Dropped returns the number of events dropped due to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
