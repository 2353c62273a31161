package tracing

import (
	"context"
	"sync"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/hooking"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/bokamoso/signin/tracing"

// OTelTracer opens a span when a transition starts and ends it when the lock
// is released. Requests dropped during the transition become span events.
type OTelTracer struct {
	tracer trace.Tracer

	lock  sync.Mutex
	spans map[string]trace.Span
}

// NewOTelTracer creates a tracer using provider.
func NewOTelTracer(provider trace.TracerProvider) *OTelTracer {
	return &OTelTracer{
		tracer: provider.Tracer(instrumentationName),
		spans:  make(map[string]trace.Span),
	}
}

// Func handles transition hooks.
func (t *OTelTracer) Func(ctx hooking.HookCtx) {
	name := domainName(ctx)

	t.lock.Lock()
	defer t.lock.Unlock()

	switch ctx.Pos {
	case carousel.HookPosTransitionStart:
		tr := ctx.Item.(carousel.Transition)
		_, span := t.tracer.Start(context.Background(), "carousel.transition",
			trace.WithAttributes(
				attribute.String("carousel.controller", name),
				attribute.String("carousel.trigger", tr.Trigger.String()),
				attribute.Int("carousel.from", tr.From),
				attribute.Int("carousel.to", tr.To),
				attribute.Int64("carousel.start_ms", tr.Start.Milliseconds()),
			))
		t.spans[name] = span
	case carousel.HookPosTransitionEnd:
		tr := ctx.Item.(carousel.Transition)

		span, ok := t.spans[name]
		if !ok {
			return
		}

		span.SetAttributes(attribute.Int64("carousel.end_ms", tr.End.Milliseconds()))
		span.End()
		delete(t.spans, name)
	case carousel.HookPosRequestDropped:
		r := ctx.Item.(carousel.Request)

		span, ok := t.spans[name]
		if !ok {
			return
		}

		span.AddEvent("request dropped", trace.WithAttributes(
			attribute.String("carousel.trigger", r.Trigger.String()),
			attribute.Int("carousel.index", r.Index),
		))
	}
}
