package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/proactive/dataspace-browser/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventListingReady  EventType = "listing_ready"  // A fresh listing was installed
	EventSelection     EventType = "selection"      // Selection changed (or was cleared)
	EventUploadState   EventType = "upload_state"   // Uploading flag flipped
	EventProgress      EventType = "progress"       // Transfer progress update
	EventError         EventType = "error"          // User-facing failure
	EventResolved      EventType = "resolved"       // A final path was chosen
	EventSessionClosed EventType = "session_closed" // Session ended
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ListingReadyEvent announces that the listing for Path is ready to be rendered.
type ListingReadyEvent struct {
	BaseEvent
	Path        string
	Filter      string
	Files       int
	Directories int
}

// SelectionEvent carries the selected entry path, empty when nothing is selected.
type SelectionEvent struct {
	BaseEvent
	Path  string
	IsDir bool
}

// UploadStateEvent reports entering or leaving the uploading state.
type UploadStateEvent struct {
	BaseEvent
	Uploading bool
	Name      string
	Outcome   string // "started", "completed", "failed", "cancelled"
}

// ProgressEvent represents transfer progress updates
type ProgressEvent struct {
	BaseEvent
	Name         string
	Direction    string  // "upload" or "download"
	Progress     float64 // 0.0 to 1.0, negative when the total is unknown
	BytesCurrent int64
	BytesTotal   int64
	Err          error // set on the last event of a transfer that failed or was cancelled
}

// ErrorEvent represents a failure the user should see.
type ErrorEvent struct {
	BaseEvent
	Title   string // "Error", "Download", "Delete", "Create New Folder"
	Message string
	Error   error
}

// ResolvedEvent carries the chosen path and the variable it was written to.
type ResolvedEvent struct {
	BaseEvent
	VarKey string
	Path   string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events are dropped for subscribers whose buffer is full.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishError is a convenience method for publishing error events
func (eb *EventBus) PublishError(title, message string, err error) {
	eb.Publish(&ErrorEvent{
		BaseEvent: BaseEvent{EventType: EventError, Time: time.Now()},
		Title:     title,
		Message:   message,
		Error:     err,
	})
}

// PublishUploadState is a convenience method for publishing upload state changes
func (eb *EventBus) PublishUploadState(uploading bool, name, outcome string) {
	eb.Publish(&UploadStateEvent{
		BaseEvent: BaseEvent{EventType: EventUploadState, Time: time.Now()},
		Uploading: uploading,
		Name:      name,
		Outcome:   outcome,
	})
}

// PublishProgress is a convenience method for publishing progress events
func (eb *EventBus) PublishProgress(name, direction string, current, total int64) {
	progress := -1.0
	if total > 0 {
		progress = float64(current) / float64(total)
	}
	eb.Publish(&ProgressEvent{
		BaseEvent:    BaseEvent{EventType: EventProgress, Time: time.Now()},
		Name:         name,
		Direction:    direction,
		Progress:     progress,
		BytesCurrent: current,
		BytesTotal:   total,
	})
}

// PublishProgressFailed announces that a transfer stopped before completing.
func (eb *EventBus) PublishProgressFailed(name, direction string, current, total int64, err error) {
	eb.Publish(&ProgressEvent{
		BaseEvent:    BaseEvent{EventType: EventProgress, Time: time.Now()},
		Name:         name,
		Direction:    direction,
		Progress:     -1,
		BytesCurrent: current,
		BytesTotal:   total,
		Err:          err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
// This prevents memory leaks from abandoned subscriptions
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			close(subCh)
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
