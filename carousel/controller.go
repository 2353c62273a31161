// Package carousel implements the transition controller behind the sign-in
// screen's image and quote carousel.
//
// The controller owns the active slide index and a transition lock. Slide
// changes come from an auto-advance timer, from Next and Prev, and from GoTo.
// All of them share one lock: while a cross-fade is in progress every other
// request is dropped. The lock is released a fixed duration after it is taken.
//
// The auto-advance countdown restarts whenever the lock is taken and again
// whenever it is released, so any transition defers the next automatic tick.
//
// A Controller is not safe for concurrent use. It expects to be driven from
// the single goroutine that dispatches its engine's events.
package carousel

import (
	"fmt"

	"github.com/bokamoso/signin/hooking"
	"github.com/bokamoso/signin/idgen"
	"github.com/bokamoso/signin/slide"
	"github.com/bokamoso/signin/timing"
)

// Preloader warms an image cache. Prefetch must not block.
type Preloader interface {
	Prefetch(uri string)
}

type autoAdvanceEvent struct{}

type unlockEvent struct{}

// Controller is the carousel transition controller.
type Controller struct {
	*hooking.HookableBase

	name      string
	engine    timing.EventScheduler
	deck      slide.Deck
	preloader Preloader
	ids       idgen.Generator

	advanceInterval    timing.VTime
	transitionDuration timing.VTime
	rearmOnUnlock      bool

	mounted         bool
	currentIndex    int
	isTransitioning bool
	inFlight        Transition

	advanceTimerID string
	unlockTimerID  string
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Deck returns the slides the controller cycles through.
func (c *Controller) Deck() slide.Deck {
	return c.deck
}

// Mount resets the state to the first slide, starts prefetching every image
// and arms the auto-advance timer. Mounting a mounted controller does nothing.
func (c *Controller) Mount() {
	if c.mounted {
		return
	}

	c.mounted = true
	c.currentIndex = 0
	c.isTransitioning = false
	c.inFlight = Transition{}

	for _, ref := range c.deck.ImageRefs() {
		c.preloader.Prefetch(ref)
	}

	c.armAutoAdvance()
}

// Unmount releases both timers. Requests made while unmounted are ignored.
func (c *Controller) Unmount() {
	if !c.mounted {
		return
	}

	c.engine.Cancel(c.advanceTimerID)
	c.engine.Cancel(c.unlockTimerID)
	c.advanceTimerID = ""
	c.unlockTimerID = ""

	c.isTransitioning = false
	c.mounted = false
}

// Next moves to the following slide, wrapping to the first.
func (c *Controller) Next() {
	c.request(TriggerNext, -1)
}

// Prev moves to the previous slide, wrapping to the last.
func (c *Controller) Prev() {
	c.request(TriggerPrev, -1)
}

// GoTo moves directly to slide i, even when i is already active. It returns
// an error wrapping ErrIndexOutOfRange, without touching the state, if i is
// not a valid index. A request dropped because of the lock is not an error.
func (c *Controller) GoTo(i int) error {
	n := c.deck.Len()
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, i, n-1)
	}

	c.request(TriggerGoTo, i)

	return nil
}

// ActiveSlide returns the slide at the current index.
func (c *Controller) ActiveSlide() slide.Descriptor {
	return c.deck.At(c.currentIndex)
}

// CurrentIndex returns the index of the active slide.
func (c *Controller) CurrentIndex() int {
	return c.currentIndex
}

// IsLocked reports whether a transition is in flight.
func (c *Controller) IsLocked() bool {
	return c.isTransitioning
}

// IsMounted reports whether the controller is between Mount and Unmount.
func (c *Controller) IsMounted() bool {
	return c.mounted
}

// Handle processes the controller's own timer events.
func (c *Controller) Handle(event any) error {
	switch event.(type) {
	case *autoAdvanceEvent:
		c.handleAutoAdvance()
	case *unlockEvent:
		c.handleUnlock()
	default:
		return fmt.Errorf("carousel: unknown event type: %T", event)
	}

	return nil
}

func (c *Controller) handleAutoAdvance() {
	if !c.mounted {
		return
	}

	c.advanceTimerID = ""
	c.request(TriggerAutoAdvance, -1)

	// A tick dropped by the lock does not start a transition, so nothing
	// re-armed the timer.
	if c.advanceTimerID == "" {
		c.armAutoAdvance()
	}
}

func (c *Controller) handleUnlock() {
	if !c.mounted {
		return
	}

	c.unlockTimerID = ""
	c.isTransitioning = false

	t := c.inFlight
	t.End = c.engine.CurrentTime()
	c.inFlight = Transition{}

	if c.rearmOnUnlock {
		c.armAutoAdvance()
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransitionEnd,
		Item:   t,
	})
}

func (c *Controller) request(trigger Trigger, index int) {
	if !c.mounted {
		return
	}

	if c.isTransitioning {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosRequestDropped,
			Item: Request{
				Trigger: trigger,
				Index:   index,
				Time:    c.engine.CurrentTime(),
			},
		})

		return
	}

	c.begin(trigger, c.target(trigger, index))
}

func (c *Controller) target(trigger Trigger, index int) int {
	n := c.deck.Len()

	switch trigger {
	case TriggerPrev:
		return (c.currentIndex - 1 + n) % n
	case TriggerGoTo:
		return index
	default:
		return (c.currentIndex + 1) % n
	}
}

func (c *Controller) begin(trigger Trigger, to int) {
	now := c.engine.CurrentTime()

	c.inFlight = Transition{
		Trigger: trigger,
		From:    c.currentIndex,
		To:      to,
		Start:   now,
	}

	c.isTransitioning = true
	c.currentIndex = to
	c.unlockTimerID = c.schedule(&unlockEvent{}, now+c.transitionDuration)
	c.armAutoAdvance()

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransitionStart,
		Item:   c.inFlight,
	})
}

// armAutoAdvance restarts the auto-advance countdown from now.
func (c *Controller) armAutoAdvance() {
	c.engine.Cancel(c.advanceTimerID)
	c.advanceTimerID = c.schedule(
		&autoAdvanceEvent{},
		c.engine.CurrentTime()+c.advanceInterval,
	)
}

func (c *Controller) schedule(event any, t timing.VTime) string {
	id := c.name + "." + c.ids.Generate()

	c.engine.Schedule(timing.ScheduledEvent{
		ID:      id,
		Event:   event,
		Time:    t,
		Handler: c,
	})

	return id
}
