package tracing

import (
	"log"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/hooking"
)

// TransitionLogger is a hook that prints transitions and dropped requests.
type TransitionLogger struct {
	logger *log.Logger
}

// NewTransitionLogger returns a TransitionLogger writing to logger.
func NewTransitionLogger(logger *log.Logger) *TransitionLogger {
	return &TransitionLogger{logger: logger}
}

// Func writes one line per hook invocation.
func (h *TransitionLogger) Func(ctx hooking.HookCtx) {
	name := domainName(ctx)

	switch ctx.Pos {
	case carousel.HookPosTransitionStart:
		t := ctx.Item.(carousel.Transition)
		h.logger.Printf("%v, %s: %s %d -> %d",
			t.Start, name, t.Trigger, t.From, t.To)
	case carousel.HookPosTransitionEnd:
		t := ctx.Item.(carousel.Transition)
		h.logger.Printf("%v, %s: unlocked on slide %d", t.End, name, t.To)
	case carousel.HookPosRequestDropped:
		r := ctx.Item.(carousel.Request)
		h.logger.Printf("%v, %s: %s dropped, transition in flight",
			r.Time, name, r.Trigger)
	}
}
