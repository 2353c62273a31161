package timing

import (
	"log"
	"reflect"

	"github.com/bokamoso/signin/hooking"
)

// EventLogger is a hook that prints the event information.
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)

	h.logger = logger

	return h
}

type named interface {
	Name() string
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*ScheduledEvent)
	if !ok {
		return
	}

	handler, ok := evt.Handler.(named)
	if ok {
		h.logger.Printf("%v, %s -> %s",
			evt.Time, reflect.TypeOf(evt.Event), handler.Name())
	} else {
		h.logger.Printf("%v, %s", evt.Time, reflect.TypeOf(evt.Event))
	}
}
