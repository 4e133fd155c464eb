// Package input turns window callbacks into camera, accumulation and viewport mutations.
// Callbacks only enqueue Events; the render loop drains the queue and feeds a Controller,
// so every mutation happens on the render goroutine.
package input

import (
	"sync/atomic"
)

// EventKind identifies which callback produced an Event.
type EventKind int

const (
	EventKey EventKind = iota
	EventCursor
	EventScroll
	EventResize
)

func (k EventKind) String() string {
	switch k {
	case EventKey:
		return "key"
	case EventCursor:
		return "cursor"
	case EventScroll:
		return "scroll"
	case EventResize:
		return "resize"
	}
	return "unknown"
}

// Action is the key transition carried by a key event.
type Action int

const (
	ActionRelease Action = iota
	ActionPress
	ActionRepeat
)

// Buttons is a bit mask of the mouse buttons held during a cursor event.
type Buttons uint8

const (
	ButtonLeft Buttons = 1 << iota
	ButtonRight
)

// Held reports whether every button in b is set.
func (m Buttons) Held(b Buttons) bool {
	return m&b == b
}

// Event is a single input sample. Only the fields relevant to Kind are set.
type Event struct {
	Kind EventKind

	// EventKey
	Key    int
	Action Action

	// EventCursor
	X, Y    float64
	Buttons Buttons

	// EventScroll
	ScrollY float64
	Ctrl    bool

	// EventResize
	Width, Height int
}

// KeyEvent builds a key event.
func KeyEvent(key int, action Action) Event {
	return Event{Kind: EventKey, Key: key, Action: action}
}

// CursorEvent builds a cursor event with the buttons held at the time of the move.
func CursorEvent(x, y float64, buttons Buttons) Event {
	return Event{Kind: EventCursor, X: x, Y: y, Buttons: buttons}
}

// ScrollEvent builds a scroll event. ctrl is the state of the control modifier.
func ScrollEvent(y float64, ctrl bool) Event {
	return Event{Kind: EventScroll, ScrollY: y, Ctrl: ctrl}
}

// ResizeEvent builds a framebuffer resize event.
func ResizeEvent(width, height int) Event {
	return Event{Kind: EventResize, Width: width, Height: height}
}

// DefaultQueueCapacity is the event buffer size used when none is configured.
const DefaultQueueCapacity = 256

// queueImpl is the implementation of the Queue interface.
type queueImpl struct {
	events  chan Event
	dropped atomic.Uint64
}

// Queue is a bounded, non-blocking hand-off from window callbacks to the render loop.
// Push never blocks: events are dropped when the buffer is full.
type Queue interface {
	// Push enqueues an event without blocking.
	//
	// Parameters:
	//   - ev: the event to enqueue
	//
	// Returns:
	//   - bool: false if the queue was full and the event was dropped
	Push(ev Event) bool

	// Drain delivers every event currently buffered to fn, in arrival order.
	//
	// Parameters:
	//   - fn: the handler invoked once per event
	//
	// Returns:
	//   - int: the number of events delivered
	Drain(fn func(Event)) int

	// Dropped returns how many events were discarded because the queue was full.
	//
	// Returns:
	//   - uint64: the drop count
	Dropped() uint64
}

var _ Queue = &queueImpl{}

// NewQueue creates a Queue holding at most capacity events.
// A non-positive capacity uses DefaultQueueCapacity.
//
// Parameters:
//   - capacity: the buffer size
//
// Returns:
//   - Queue: the new queue
func NewQueue(capacity int) Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &queueImpl{events: make(chan Event, capacity)}
}

func (q *queueImpl) Push(ev Event) bool {
	select {
	case q.events <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *queueImpl) Drain(fn func(Event)) int {
	// events pushed while draining wait for the next frame
	pending := len(q.events)
	for i := range pending {
		select {
		case ev := <-q.events:
			fn(ev)
		default:
			return i
		}
	}
	return pending
}

func (q *queueImpl) Dropped() uint64 {
	return q.dropped.Load()
}
