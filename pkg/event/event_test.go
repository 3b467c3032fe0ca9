// pkg/event/event_test.go
package event

import (
	"sync"
	"testing"
	"time"
)

// TestNewEventBus tests the creation of a new event bus
func TestNewEventBus_Creation_ReturnsInitializedBus(t *testing.T) {
	bus := NewEventBus()

	if bus == nil {
		t.Fatal("NewEventBus() returned nil")
	}

	if bus.handlers == nil {
		t.Error("handlers map not initialized")
	}

	if bus.nextID != 1 {
		t.Errorf("expected nextID to be 1, got %d", bus.nextID)
	}
}

// TestBaseEvent tests the BaseEvent functionality
func TestBaseEvent_GetType_ReturnsCorrectType(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		source    interface{}
	}{
		{
			name:      "AircraftReset event",
			eventType: AircraftReset,
			source:    "test_source",
		},
		{
			name:      "GroundContact event",
			eventType: GroundContact,
			source:    123,
		},
		{
			name:      "Empty source",
			eventType: RunStarted,
			source:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &BaseEvent{
				EventType: tt.eventType,
				Source:    tt.source,
			}

			if event.GetType() != tt.eventType {
				t.Errorf("GetType() = %v, want %v", event.GetType(), tt.eventType)
			}

			if event.GetSource() != tt.source {
				t.Errorf("GetSource() = %v, want %v", event.GetSource(), tt.source)
			}
		})
	}
}

// TestBusSubscribe tests event subscription functionality
func TestBusSubscribe_SingleHandler_ReturnsValidSubscription(t *testing.T) {
	bus := NewEventBus()

	handler := func(e Event) {
		// Handler for testing subscription
	}

	sub := bus.Subscribe(AircraftReset, handler)

	if sub == nil {
		t.Fatal("Subscribe() returned nil subscription")
	}

	if sub.ID == 0 {
		t.Error("subscription ID should not be 0")
	}

	if sub.Type != AircraftReset {
		t.Errorf("subscription Type = %v, want %v", sub.Type, AircraftReset)
	}

	// Verify handler was registered
	bus.mu.RLock()
	handlers := bus.handlers[AircraftReset]
	bus.mu.RUnlock()

	if len(handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(handlers))
	}
}

// TestBusSubscribe_MultipleHandlers tests multiple subscriptions
func TestBusSubscribe_MultipleHandlers_AllRegistered(t *testing.T) {
	bus := NewEventBus()
	var callCount int

	handler1 := func(e Event) { callCount++ }
	handler2 := func(e Event) { callCount++ }
	handler3 := func(e Event) { callCount++ }

	sub1 := bus.Subscribe(AircraftReset, handler1)
	sub2 := bus.Subscribe(AircraftReset, handler2)
	_ = bus.Subscribe(GroundContact, handler3)

	// Check unique IDs
	if sub1.ID == sub2.ID {
		t.Error("subscriptions should have unique IDs")
	}

	// Check handlers count
	bus.mu.RLock()
	resetHandlers := bus.handlers[AircraftReset]
	contactHandlers := bus.handlers[GroundContact]
	bus.mu.RUnlock()

	if len(resetHandlers) != 2 {
		t.Errorf("expected 2 handlers for AircraftReset, got %d", len(resetHandlers))
	}

	if len(contactHandlers) != 1 {
		t.Errorf("expected 1 handler for GroundContact, got %d", len(contactHandlers))
	}
}

// TestBusPublish tests event publishing functionality
func TestBusPublish_WithSubscribers_CallsAllHandlers(t *testing.T) {
	bus := NewEventBus()
	var callCount int
	var receivedEvents []Event

	handler1 := func(e Event) {
		callCount++
		receivedEvents = append(receivedEvents, e)
	}

	handler2 := func(e Event) {
		callCount++
		receivedEvents = append(receivedEvents, e)
	}

	bus.Subscribe(AircraftReset, handler1)
	bus.Subscribe(AircraftReset, handler2)

	event := &BaseEvent{
		EventType: AircraftReset,
		Source:    "test",
	}

	bus.Publish(event)

	if callCount != 2 {
		t.Errorf("expected 2 handler calls, got %d", callCount)
	}

	if len(receivedEvents) != 2 {
		t.Errorf("expected 2 received events, got %d", len(receivedEvents))
	}

	for _, e := range receivedEvents {
		if e.GetType() != AircraftReset {
			t.Errorf("expected event type %v, got %v", AircraftReset, e.GetType())
		}
	}
}

// TestBusPublish_NoSubscribers tests publishing without subscribers
func TestBusPublish_NoSubscribers_NoError(t *testing.T) {
	bus := NewEventBus()

	event := &BaseEvent{
		EventType: AircraftReset,
		Source:    "test",
	}

	// Should not panic or error
	bus.Publish(event)
}

// TestBusPublish_WrongEventType tests publishing to non-subscribed event type
func TestBusPublish_WrongEventType_HandlersNotCalled(t *testing.T) {
	bus := NewEventBus()
	handlerCalled := false

	handler := func(e Event) {
		handlerCalled = true
	}

	bus.Subscribe(AircraftReset, handler)

	event := &BaseEvent{
		EventType: GroundContact,
		Source:    "test",
	}

	bus.Publish(event)

	if handlerCalled {
		t.Error("handler should not have been called for different event type")
	}
}

// TestSubscriptionCancel tests canceling subscriptions
func TestSubscriptionCancel_ValidSubscription_RemovesHandler(t *testing.T) {
	bus := NewEventBus()
	handlerCalled := false

	handler := func(e Event) {
		handlerCalled = true
	}

	sub := bus.Subscribe(AircraftReset, handler)

	// Verify handler is registered
	bus.mu.RLock()
	handlersBefore := len(bus.handlers[AircraftReset])
	bus.mu.RUnlock()

	if handlersBefore != 1 {
		t.Errorf("expected 1 handler before cancel, got %d", handlersBefore)
	}

	// Cancel subscription
	sub.Cancel()

	// Verify handler is removed
	bus.mu.RLock()
	handlersAfter := len(bus.handlers[AircraftReset])
	bus.mu.RUnlock()

	if handlersAfter != 0 {
		t.Errorf("expected 0 handlers after cancel, got %d", handlersAfter)
	}

	// Verify handler is not called after cancellation
	event := &BaseEvent{
		EventType: AircraftReset,
		Source:    "test",
	}

	bus.Publish(event)

	if handlerCalled {
		t.Error("handler should not be called after cancellation")
	}
}

// TestConcurrentAccess tests thread safety
func TestBusSubscribe_ConcurrentAccess_ThreadSafe(t *testing.T) {
	bus := NewEventBus()
	var wg sync.WaitGroup
	handlerCount := 0
	var mu sync.Mutex

	handler := func(e Event) {
		mu.Lock()
		handlerCount++
		mu.Unlock()
	}

	// Start multiple goroutines to subscribe concurrently
	numGoroutines := 10
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			bus.Subscribe(AircraftReset, handler)
		}()
	}

	wg.Wait()

	// Verify all subscriptions were registered
	bus.mu.RLock()
	handlers := bus.handlers[AircraftReset]
	bus.mu.RUnlock()

	if len(handlers) != numGoroutines {
		t.Errorf("expected %d handlers, got %d", numGoroutines, len(handlers))
	}

	// Test concurrent publishing
	event := &BaseEvent{
		EventType: AircraftReset,
		Source:    "test",
	}

	// Publish concurrently
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func() {
			defer wg.Done()
			bus.Publish(event)
		}()
	}

	wg.Wait()

	// Give handlers time to execute
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	expectedCalls := numGoroutines * 3
	if handlerCount != expectedCalls {
		t.Errorf("expected %d handler calls, got %d", expectedCalls, handlerCount)
	}
	mu.Unlock()
}

// TestNewAircraftEvent tests aircraft event creation
func TestNewAircraftEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	tests := []struct {
		name         string
		eventType    Type
		source       interface{}
		aircraftType string
		simTime      float64
		altitude     float64
		airspeed     float64
	}{
		{
			name:         "Aircraft reset event",
			eventType:    AircraftReset,
			source:       "simulator",
			aircraftType: "default",
			simTime:      0,
			altitude:     1000,
			airspeed:     30,
		},
		{
			name:         "Ground contact event",
			eventType:    GroundContact,
			source:       nil,
			aircraftType: "glider",
			simTime:      18.2,
			altitude:     0,
			airspeed:     41.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewAircraftEvent(tt.eventType, tt.source, tt.aircraftType, tt.simTime, tt.altitude, tt.airspeed)

			if event == nil {
				t.Fatal("NewAircraftEvent() returned nil")
			}

			if event.GetType() != tt.eventType {
				t.Errorf("GetType() = %v, want %v", event.GetType(), tt.eventType)
			}

			if event.GetSource() != tt.source {
				t.Errorf("GetSource() = %v, want %v", event.GetSource(), tt.source)
			}

			if event.AircraftType != tt.aircraftType {
				t.Errorf("AircraftType = %v, want %v", event.AircraftType, tt.aircraftType)
			}

			if event.SimTime != tt.simTime || event.Altitude != tt.altitude || event.Airspeed != tt.airspeed {
				t.Errorf("event = %+v, want time %v altitude %v airspeed %v", event, tt.simTime, tt.altitude, tt.airspeed)
			}
		})
	}
}

// TestNewStallEvent tests stall event creation
func TestNewStallEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	event := NewStallEvent(StallEntered, "simulator", 3.5, 0.4, 2.68, 1.4)

	if event.GetType() != StallEntered {
		t.Errorf("GetType() = %v, want %v", event.GetType(), StallEntered)
	}

	if event.SimTime != 3.5 || event.AngleOfAttack != 0.4 {
		t.Errorf("SimTime/AngleOfAttack = %v/%v, want 3.5/0.4", event.SimTime, event.AngleOfAttack)
	}

	if event.UnclampedLift != 2.68 || event.LiftCoefficient != 1.4 {
		t.Errorf("UnclampedLift/LiftCoefficient = %v/%v, want 2.68/1.4", event.UnclampedLift, event.LiftCoefficient)
	}
}

// TestNewRunEvent tests run event creation
func TestNewRunEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	event := NewRunEvent(RunStopped, "runner", "abc123", 600)

	if event.GetType() != RunStopped {
		t.Errorf("GetType() = %v, want %v", event.GetType(), RunStopped)
	}

	if event.RunID != "abc123" || event.Steps != 600 {
		t.Errorf("RunID/Steps = %v/%v, want abc123/600", event.RunID, event.Steps)
	}
}

// TestNewBreakerEvent tests breaker event creation
func TestNewBreakerEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	event := NewBreakerEvent("recorder", "flight-recorder", "closed", "open")

	if event.GetType() != RecorderStateChanged {
		t.Errorf("GetType() = %v, want %v", event.GetType(), RecorderStateChanged)
	}

	if event.Name != "flight-recorder" || event.From != "closed" || event.To != "open" {
		t.Errorf("event = %+v, want flight-recorder closed->open", event)
	}
}

// TestEventTypes tests that all event type constants are properly defined
func TestEventTypes_Constants_AllDefined(t *testing.T) {
	expectedTypes := []Type{
		AircraftReset,
		AircraftTypeChanged,
		GroundContact,
		StallEntered,
		StallExited,
		RunStarted,
		RunStopped,
		RecorderStateChanged,
	}

	for _, eventType := range expectedTypes {
		if string(eventType) == "" {
			t.Errorf("event type %v is empty", eventType)
		}
	}
}

// TestCancelMultipleSubscriptions tests canceling multiple subscriptions
func TestCancelMultipleSubscriptions_DifferentTypes_OnlyTargetRemoved(t *testing.T) {
	bus := NewEventBus()

	handler1Called := false
	handler2Called := false
	handler3Called := false

	handler1 := func(e Event) { handler1Called = true }
	handler2 := func(e Event) { handler2Called = true }
	handler3 := func(e Event) { handler3Called = true }

	sub1 := bus.Subscribe(AircraftReset, handler1)
	_ = bus.Subscribe(AircraftReset, handler2)
	_ = bus.Subscribe(GroundContact, handler3)

	// Cancel only the first subscription
	sub1.Cancel()

	// Publish AircraftReset event
	resetEvent := &BaseEvent{EventType: AircraftReset, Source: "test"}
	bus.Publish(resetEvent)

	// Publish GroundContact event
	contactEvent := &BaseEvent{EventType: GroundContact, Source: "test"}
	bus.Publish(contactEvent)

	if handler1Called {
		t.Error("handler1 should not be called after cancellation")
	}

	if !handler2Called {
		t.Error("handler2 should be called")
	}

	if !handler3Called {
		t.Error("handler3 should be called")
	}
}

// TestSubscriptionCancel_Twice tests that repeated cancellation is harmless
func TestSubscriptionCancel_Twice_LeavesOthersRegistered(t *testing.T) {
	bus := NewEventBus()
	calls := 0

	sub := bus.Subscribe(StallEntered, func(e Event) {})
	_ = bus.Subscribe(StallEntered, func(e Event) { calls++ })

	sub.Cancel()
	sub.Cancel()

	bus.Publish(NewStallEvent(StallEntered, "test", 1, 0.5, 3, 1.4))

	if calls != 1 {
		t.Errorf("expected remaining handler to be called once, got %d", calls)
	}

	var nilSub *Subscription
	nilSub.Cancel()
}

// TestBusPublish_HandlerCancelsItself tests cancellation during dispatch
func TestBusPublish_HandlerCancelsItself_NoDeadlock(t *testing.T) {
	bus := NewEventBus()
	calls := 0

	var sub *Subscription
	sub = bus.Subscribe(GroundContact, func(e Event) {
		calls++
		sub.Cancel()
	})

	event := NewAircraftEvent(GroundContact, "test", "default", 1, 0, 20)
	bus.Publish(event)
	bus.Publish(event)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
