package events

import (
	"github.com/kelindar/event"
)

// Bus is a typed in-process event bus backed by a kelindar/event dispatcher.
// Delivery is asynchronous; each subscriber sees events in publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish sends ev to every subscriber of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ProcessStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case BudgetExhaustedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, whose parameter type selects the events it
// receives, and returns the unsubscribe function. Handlers for unknown
// types are ignored.
//
//	unsub := bus.Subscribe(func(e ProcessStateChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ProcessStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BudgetExhaustedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
