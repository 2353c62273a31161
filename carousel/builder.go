package carousel

import (
	"time"

	"github.com/bokamoso/signin/hooking"
	"github.com/bokamoso/signin/idgen"
	"github.com/bokamoso/signin/slide"
	"github.com/bokamoso/signin/timing"
)

// Defaults used by the sign-in screen. DefaultTransitionDuration must match
// the cross-fade duration of the rendering layer.
const (
	DefaultAdvanceInterval    = 5000 * time.Millisecond
	DefaultTransitionDuration = 500 * time.Millisecond
)

type nopPreloader struct{}

func (nopPreloader) Prefetch(string) {}

// Builder can build carousel controllers.
type Builder struct {
	engine             timing.EventScheduler
	deck               slide.Deck
	preloader          Preloader
	advanceInterval    timing.VTime
	transitionDuration timing.VTime
	rearmOnUnlock      bool
}

// MakeBuilder creates a builder with the default timings and no preloader.
// The auto-advance countdown restarts on both lock edges, so automatic ticks
// come every advance interval plus transition duration.
func MakeBuilder() Builder {
	return Builder{
		preloader:          nopPreloader{},
		advanceInterval:    DefaultAdvanceInterval,
		transitionDuration: DefaultTransitionDuration,
		rearmOnUnlock:      true,
	}
}

// WithEngine sets the engine that provides time and timers.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithDeck sets the slides.
func (b Builder) WithDeck(deck slide.Deck) Builder {
	b.deck = deck
	return b
}

// WithPreloader sets the image preloader used on mount.
func (b Builder) WithPreloader(p Preloader) Builder {
	b.preloader = p
	return b
}

// WithAdvanceInterval sets the auto-advance period.
func (b Builder) WithAdvanceInterval(d time.Duration) Builder {
	b.advanceInterval = d
	return b
}

// WithTransitionDuration sets how long the transition lock is held.
func (b Builder) WithTransitionDuration(d time.Duration) Builder {
	b.transitionDuration = d
	return b
}

// WithFixedCadence restarts the auto-advance countdown only when a transition
// starts, not when the lock is released. Without interaction, automatic ticks
// then come exactly every advance interval.
func (b Builder) WithFixedCadence() Builder {
	b.rearmOnUnlock = false
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		panic("carousel: engine is not set")
	}

	if b.deck.Len() == 0 {
		panic("carousel: deck is not set")
	}

	if b.preloader == nil {
		panic("carousel: preloader is nil")
	}

	if b.advanceInterval <= 0 || b.transitionDuration <= 0 {
		panic("carousel: durations must be positive")
	}
}

// Build creates an unmounted controller.
func (b Builder) Build(name string) *Controller {
	b.parametersMustBeValid()

	return &Controller{
		HookableBase:       hooking.NewHookableBase(),
		name:               name,
		engine:             b.engine,
		deck:               b.deck,
		preloader:          b.preloader,
		ids:                idgen.New(),
		advanceInterval:    b.advanceInterval,
		transitionDuration: b.transitionDuration,
		rearmOnUnlock:      b.rearmOnUnlock,
	}
}
