package tracing

import (
	"time"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/datarecording"
	"github.com/bokamoso/signin/hooking"
	"github.com/bokamoso/signin/idgen"
)

// Table names used by DBTracer.
const (
	TransitionTable     = "carousel_transition"
	DroppedRequestTable = "carousel_dropped_request"
)

// TransitionRecord is one row of TransitionTable. Times are virtual
// milliseconds since the engine started.
type TransitionRecord struct {
	ID          string
	Controller  string
	TriggerKind string
	FromIndex   int
	ToIndex     int
	StartMs     float64
	EndMs       float64
}

// DroppedRequestRecord is one row of DroppedRequestTable. TargetIndex is -1
// unless the request was a GoTo.
type DroppedRequestRecord struct {
	ID          string
	Controller  string
	TriggerKind string
	TargetIndex int
	TimeMs      float64
}

// DBTracer records every completed transition and every dropped request into
// a DataRecorder. A transition is written once its lock is released.
type DBTracer struct {
	backend datarecording.DataRecorder
	ids     idgen.Generator
}

// NewDBTracer creates the tracer's tables in backend.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	backend.CreateTable(TransitionTable, TransitionRecord{})
	backend.CreateTable(DroppedRequestTable, DroppedRequestRecord{})

	return &DBTracer{backend: backend, ids: idgen.NewParallel()}
}

// Func buffers a row for transition ends and dropped requests.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case carousel.HookPosTransitionEnd:
		tr := ctx.Item.(carousel.Transition)
		t.backend.InsertData(TransitionTable, TransitionRecord{
			ID:          t.ids.Generate(),
			Controller:  domainName(ctx),
			TriggerKind: tr.Trigger.String(),
			FromIndex:   tr.From,
			ToIndex:     tr.To,
			StartMs:     toMs(tr.Start),
			EndMs:       toMs(tr.End),
		})
	case carousel.HookPosRequestDropped:
		r := ctx.Item.(carousel.Request)
		t.backend.InsertData(DroppedRequestTable, DroppedRequestRecord{
			ID:          t.ids.Generate(),
			Controller:  domainName(ctx),
			TriggerKind: r.Trigger.String(),
			TargetIndex: r.Index,
			TimeMs:      toMs(r.Time),
		})
	}
}

// Flush writes buffered rows.
func (t *DBTracer) Flush() {
	t.backend.Flush()
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
