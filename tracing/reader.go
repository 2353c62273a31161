package tracing

import (
	"context"

	"github.com/bokamoso/signin/datarecording"
)

// Trace is the content of a recording written by DBTracer.
type Trace struct {
	Transitions []TransitionRecord
	Dropped     []DroppedRequestRecord
}

// ReadTrace loads every row written by DBTracer, in time order.
func ReadTrace(ctx context.Context, reader datarecording.DataReader) (Trace, error) {
	reader.MapTable(TransitionTable, TransitionRecord{})
	reader.MapTable(DroppedRequestTable, DroppedRequestRecord{})

	var trace Trace

	rows, _, err := reader.Query(ctx, TransitionTable,
		datarecording.QueryParams{OrderBy: "StartMs, rowid"})
	if err != nil {
		return Trace{}, err
	}

	for _, r := range rows {
		trace.Transitions = append(trace.Transitions, *r.(*TransitionRecord))
	}

	rows, _, err = reader.Query(ctx, DroppedRequestTable,
		datarecording.QueryParams{OrderBy: "TimeMs, rowid"})
	if err != nil {
		return Trace{}, err
	}

	for _, r := range rows {
		trace.Dropped = append(trace.Dropped, *r.(*DroppedRequestRecord))
	}

	return trace, nil
}
