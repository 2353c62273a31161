// Package timing provides the clock and timer services that drive the
// carousel. SerialEngine advances virtual time deterministically, and
// RealTimeEngine follows the wall clock.
package timing

import (
	"time"

	"github.com/bokamoso/signin/hooking"
)

// VTime is a point in time measured as the offset from the moment the engine
// started.
type VTime = time.Duration

// Handler processes events of various types.
// Events are plain data structs. Handlers use type switching to handle
// different event types:
//
//	func (h *MyHandler) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(event any) error
}

// TimeTeller exposes the current engine time.
type TimeTeller interface {
	CurrentTime() VTime
}

// EventScheduler schedules and cancels events on the timeline.
type EventScheduler interface {
	TimeTeller

	// Schedule registers an event to be handled at evt.Time.
	Schedule(evt ScheduledEvent)

	// Cancel removes a pending event by ID. Cancelling an event that has
	// already been handled, or an unknown ID, is a no-op.
	Cancel(id string)
}

// ScheduledEvent is the engine-facing wrapper for user-defined events.
type ScheduledEvent struct {
	// ID identifies the event for cancellation. Events with an empty ID
	// cannot be cancelled.
	ID string

	// Event is the data payload to be delivered to the handler.
	Event any

	// Time is when the event should be processed.
	Time VTime

	// Handler is the component that will process this event.
	Handler Handler

	// IsSecondary indicates if this event should be processed after all
	// primary events at the same time.
	IsSecondary bool
}

// HookPosBeforeEvent is a hook position that triggers before handling an
// event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}
