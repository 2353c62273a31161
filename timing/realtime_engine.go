package timing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bokamoso/signin/hooking"
)

// ErrEngineStopped is returned by Invoke when the engine is no longer
// dispatching events.
var ErrEngineStopped = errors.New("timing: engine stopped")

// RealTimeEngine delivers events when the wall clock reaches their time. All
// handlers run on the goroutine that calls Run, so handlers never run
// concurrently with each other.
type RealTimeEngine struct {
	*hooking.HookableBase

	start time.Time

	lock    sync.Mutex
	pending map[string]*time.Timer
	stopped bool

	inbox chan *ScheduledEvent
	done  chan struct{}
}

type invocation struct {
	fn       func()
	finished chan struct{}
}

// NewRealTimeEngine creates a RealTimeEngine whose time zero is now.
func NewRealTimeEngine() *RealTimeEngine {
	return &RealTimeEngine{
		HookableBase: hooking.NewHookableBase(),
		start:        time.Now(),
		pending:      make(map[string]*time.Timer),
		inbox:        make(chan *ScheduledEvent, 64),
		done:         make(chan struct{}),
	}
}

// CurrentTime returns the wall-clock time elapsed since the engine was
// created.
func (e *RealTimeEngine) CurrentTime() VTime {
	return time.Since(e.start)
}

// Schedule arms a timer that delivers the event at evt.Time. Events whose time
// has already passed are delivered immediately.
func (e *RealTimeEngine) Schedule(evt ScheduledEvent) {
	delay := evt.Time - e.CurrentTime()
	if delay < 0 {
		delay = 0
	}

	eventCopy := evt

	e.lock.Lock()
	defer e.lock.Unlock()

	if e.stopped {
		return
	}

	timer := time.AfterFunc(delay, func() { e.deliver(&eventCopy) })
	if evt.ID != "" {
		e.pending[evt.ID] = timer
	}
}

// Cancel stops the timer of a pending event. An event that already fired but
// has not been dispatched yet is dropped at dispatch time.
func (e *RealTimeEngine) Cancel(id string) {
	if id == "" {
		return
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	timer, ok := e.pending[id]
	if !ok {
		return
	}

	timer.Stop()
	delete(e.pending, id)
}

func (e *RealTimeEngine) deliver(evt *ScheduledEvent) {
	select {
	case e.inbox <- evt:
	case <-e.done:
	}
}

// Run dispatches events until ctx is cancelled. On return every pending
// timer is stopped.
func (e *RealTimeEngine) Run(ctx context.Context) error {
	defer e.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-e.inbox:
			e.dispatch(evt)
		}
	}
}

// Invoke runs fn on the dispatch goroutine and waits for it to finish. It is
// how code outside the engine, such as HTTP handlers, touches handler state.
func (e *RealTimeEngine) Invoke(ctx context.Context, fn func()) error {
	inv := &invocation{fn: fn, finished: make(chan struct{})}
	evt := &ScheduledEvent{Event: inv, Time: e.CurrentTime()}

	select {
	case e.inbox <- evt:
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-inv.finished:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RealTimeEngine) dispatch(evt *ScheduledEvent) {
	if inv, ok := evt.Event.(*invocation); ok {
		inv.fn()
		close(inv.finished)

		return
	}

	if !e.claim(evt.ID) {
		return
	}

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

// claim reports whether a fired event is still wanted, removing it from the
// pending set.
func (e *RealTimeEngine) claim(id string) bool {
	if id == "" {
		return true
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if _, ok := e.pending[id]; !ok {
		return false
	}

	delete(e.pending, id)

	return true
}

func (e *RealTimeEngine) stop() {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.stopped {
		return
	}

	e.stopped = true
	for id, timer := range e.pending {
		timer.Stop()
		delete(e.pending, id)
	}

	close(e.done)
}

var _ EventScheduler = (*RealTimeEngine)(nil)
