package timing

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/bokamoso/signin/hooking"
)

// SerialEngine processes scheduled events sequentially in virtual time. Time
// only moves when Run or RunUntil dispatches events, which makes runs
// reproducible.
type SerialEngine struct {
	*hooking.HookableBase

	timeLock sync.RWMutex
	now      VTime

	queue          eventQueue
	secondaryQueue eventQueue

	cancelLock sync.Mutex
	queued     map[string]struct{}
	cancelled  map[string]struct{}

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		HookableBase:   hooking.NewHookableBase(),
		queue:          newScheduledEventQueue(),
		secondaryQueue: newScheduledEventQueue(),
		queued:         make(map[string]struct{}),
		cancelled:      make(map[string]struct{}),
	}
}

// Schedule registers an event to be handled in the future.
func (e *SerialEngine) Schedule(evt ScheduledEvent) {
	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Sprintf(
			"timing: cannot schedule event in the past, evt %s @ %v, now %v",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	if evt.ID != "" {
		e.cancelLock.Lock()
		e.queued[evt.ID] = struct{}{}
		e.cancelLock.Unlock()
	}

	eventCopy := evt
	if evt.IsSecondary {
		e.secondaryQueue.Push(&eventCopy)
		return
	}

	e.queue.Push(&eventCopy)
}

// Cancel drops a queued event. The engine clock does not move to the time of
// a cancelled event.
func (e *SerialEngine) Cancel(id string) {
	if id == "" {
		return
	}

	e.cancelLock.Lock()
	defer e.cancelLock.Unlock()

	if _, ok := e.queued[id]; !ok {
		return
	}

	delete(e.queued, id)
	e.cancelled[id] = struct{}{}
}

// Pending returns the number of events that are queued and not cancelled.
func (e *SerialEngine) Pending() int {
	e.cancelLock.Lock()
	numCancelled := len(e.cancelled)
	e.cancelLock.Unlock()

	return e.queue.Len() + e.secondaryQueue.Len() - numCancelled
}

func (e *SerialEngine) readNow() VTime {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t VTime) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run processes all scheduled events until the queues drain.
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		e.pauseLock.Lock()

		evt := e.nextEvent(nil)
		if evt == nil {
			e.pauseLock.Unlock()
			return nil
		}

		e.dispatch(evt)

		e.pauseLock.Unlock()
	}
}

// RunUntil processes every event scheduled at or before t and then moves the
// clock to t. Events scheduled later stay queued.
func (e *SerialEngine) RunUntil(t VTime) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		e.pauseLock.Lock()

		evt := e.nextEvent(&t)
		if evt == nil {
			e.pauseLock.Unlock()
			break
		}

		e.dispatch(evt)

		e.pauseLock.Unlock()
	}

	if t > e.readNow() {
		e.writeNow(t)
	}

	return nil
}

// RunFor is RunUntil(CurrentTime() + d).
func (e *SerialEngine) RunFor(d VTime) error {
	return e.RunUntil(e.readNow() + d)
}

func (e *SerialEngine) dispatch(evt *ScheduledEvent) {
	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Sprintf(
			"timing: cannot run event in the past, evt %s @ %v, now %v",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	e.writeNow(evt.Time)

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	if evt.Handler != nil {
		_ = evt.Handler.Handle(evt.Event)
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)
}

// nextEvent pops the earliest live event. With a non-nil limit, events after
// the limit are left in place and nil is returned.
func (e *SerialEngine) nextEvent(limit *VTime) *ScheduledEvent {
	for {
		q := e.earliestQueue()
		if q == nil {
			return nil
		}

		head := q.Peek()
		if e.consumeCancelled(head.ID) {
			q.Pop()
			continue
		}

		if limit != nil && head.Time > *limit {
			return nil
		}

		q.Pop()
		e.markDequeued(head.ID)

		return head
	}
}

func (e *SerialEngine) earliestQueue() eventQueue {
	primary := e.queue.Peek()
	secondary := e.secondaryQueue.Peek()

	switch {
	case primary == nil && secondary == nil:
		return nil
	case primary == nil:
		return e.secondaryQueue
	case secondary == nil:
		return e.queue
	case primary.Time <= secondary.Time:
		return e.queue
	default:
		return e.secondaryQueue
	}
}

func (e *SerialEngine) consumeCancelled(id string) bool {
	if id == "" {
		return false
	}

	e.cancelLock.Lock()
	defer e.cancelLock.Unlock()

	if _, ok := e.cancelled[id]; !ok {
		return false
	}

	delete(e.cancelled, id)

	return true
}

func (e *SerialEngine) markDequeued(id string) {
	if id == "" {
		return
	}

	e.cancelLock.Lock()
	delete(e.queued, id)
	e.cancelLock.Unlock()
}

// Pause prevents the engine from dispatching more events until Continue is
// called.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes event processing after a Pause.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the time of the most recently executed event, or the
// last RunUntil target.
func (e *SerialEngine) CurrentTime() VTime {
	return e.readNow()
}

var _ EventScheduler = (*SerialEngine)(nil)
