package orchestrator

import (
	"log"
	"sync/atomic"
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRunStarted indicates a run has begun.
	EventRunStarted EventType = "run_started"
	// EventTurnStarted indicates an agent invocation has begun.
	EventTurnStarted EventType = "turn_started"
	// EventTurnCompleted indicates a turn was appended to the result.
	EventTurnCompleted EventType = "turn_completed"
	// EventTurnFailed indicates an agent invocation failed.
	EventTurnFailed EventType = "turn_failed"
	// EventRunCompleted indicates the run finalized successfully.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed indicates the run finalized with an error.
	EventRunFailed EventType = "run_failed"
)

// Event is emitted by an orchestrator as a run progresses. Events feed
// the TUI and run logs; consumers must drain the channel promptly or
// tolerate drops.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run the event belongs to.
	RunID string
	// Orchestrator is the name of the emitting orchestrator.
	Orchestrator string
	// AgentName is the related agent, if applicable.
	AgentName string
	// TurnNumber is the related turn, if applicable.
	TurnNumber int
	// Message provides additional context about the event.
	Message string
	// Error contains failure details for failure events.
	Error error
	// TokensUsed is the run's accumulated token total at emission time.
	TokensUsed int64
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter provides thread-safe event emission with a bounded buffer.
// When the buffer is full the emitter retries briefly, then drops the
// event rather than stalling the run.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{events: make(chan Event, bufferSize)}
}

// Emit sends an event, dropping it if no consumer drains the channel in
// time.
func (e *EventEmitter) Emit(event Event) {
	event.Timestamp = time.Now()

	select {
	case e.events <- event:
		return
	default:
	}

	// Channel full; give the receiver a brief chance to drain.
	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}
