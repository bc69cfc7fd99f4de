package pipeline

// TraceEvent is one diagnostic step emitted after a stage executes. Events
// are append-only per request and discarded when the request ends.
type TraceEvent struct {
	RunID   string
	Stage   Stage
	Payload string
}

// TraceSink receives trace events. Implementations must be cheap; a slow
// sink delays the pipeline.
type TraceSink interface {
	OnTrace(event TraceEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnTrace(TraceEvent) {}

var _ TraceSink = NopSink{}

// CollectorSink records events in order. Intended for tests and debugging.
type CollectorSink struct {
	Events []TraceEvent
}

func (c *CollectorSink) OnTrace(event TraceEvent) {
	c.Events = append(c.Events, event)
}

var _ TraceSink = (*CollectorSink)(nil)

func (o *Orchestrator) emit(st *runState, stage Stage, payload string) {
	if st.opts.Trace == nil {
		return
	}
	st.opts.Trace.OnTrace(TraceEvent{RunID: st.runID, Stage: stage, Payload: payload})
}
