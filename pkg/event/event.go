// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Flight event types
const (
	AircraftReset        Type = "aircraft_reset"
	AircraftTypeChanged  Type = "aircraft_type_changed"
	GroundContact        Type = "ground_contact"
	StallEntered         Type = "stall_entered"
	StallExited          Type = "stall_exited"
	RunStarted           Type = "run_started"
	RunStopped           Type = "run_stopped"
	RecorderStateChanged Type = "recorder_state_changed"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
}

// Subscription identifies one registered handler
type Subscription struct {
	ID   uint64
	Type Type
	bus  *Bus
}

// Cancel removes the handler from its bus. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Unsubscribe(s)
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{ID: id, Type: eventType, bus: b}
}

// Unsubscribe removes the handler registered under sub
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[sub.Type]
	for i, h := range handlers {
		if h.id != sub.ID {
			continue
		}
		remaining := make([]subscriber, 0, len(handlers)-1)
		remaining = append(remaining, handlers[:i]...)
		remaining = append(remaining, handlers[i+1:]...)
		if len(remaining) == 0 {
			delete(b.handlers, sub.Type)
		} else {
			b.handlers[sub.Type] = remaining
		}
		return
	}
}

// Publish sends an event to all subscribed handlers on the caller's goroutine
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.GetType()]
	b.mu.RUnlock()

	// The slice is never mutated in place, so iterating it unlocked is safe.
	for _, h := range handlers {
		h.handler(event)
	}
}

// Specific event implementations

// AircraftEvent reports a change to the simulated aircraft
type AircraftEvent struct {
	BaseEvent
	AircraftType string
	SimTime      float64 // seconds since the last reset
	Altitude     float64
	Airspeed     float64
}

// NewAircraftEvent creates a new aircraft event
func NewAircraftEvent(eventType Type, source interface{}, aircraftType string, simTime, altitude, airspeed float64) *AircraftEvent {
	return &AircraftEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		AircraftType: aircraftType,
		SimTime:      simTime,
		Altitude:     altitude,
		Airspeed:     airspeed,
	}
}

// StallEvent reports the wing crossing into or out of the stall
type StallEvent struct {
	BaseEvent
	SimTime         float64
	AngleOfAttack   float64 // rad
	UnclampedLift   float64
	LiftCoefficient float64
}

// NewStallEvent creates a new stall event
func NewStallEvent(eventType Type, source interface{}, simTime, angleOfAttack, unclampedLift, liftCoefficient float64) *StallEvent {
	return &StallEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		SimTime:         simTime,
		AngleOfAttack:   angleOfAttack,
		UnclampedLift:   unclampedLift,
		LiftCoefficient: liftCoefficient,
	}
}

// RunEvent reports a simulation run starting or stopping
type RunEvent struct {
	BaseEvent
	RunID string
	Steps uint64
}

// NewRunEvent creates a new run event
func NewRunEvent(eventType Type, source interface{}, runID string, steps uint64) *RunEvent {
	return &RunEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		RunID: runID,
		Steps: steps,
	}
}

// BreakerEvent reports a circuit breaker state transition
type BreakerEvent struct {
	BaseEvent
	Name string
	From string
	To   string
}

// NewBreakerEvent creates a new breaker event
func NewBreakerEvent(source interface{}, name, from, to string) *BreakerEvent {
	return &BreakerEvent{
		BaseEvent: BaseEvent{
			EventType: RecorderStateChanged,
			Source:    source,
		},
		Name: name,
		From: from,
		To:   to,
	}
}
