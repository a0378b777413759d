package tracer

import (
	"context"
)

// Tracer for trace
type Tracer interface {
	Context() context.Context
	SetTag(key string, value interface{})
	SetError(err error)
	Log(key string, value interface{})
	Finish(additionalTags ...map[string]interface{})
}

// StartTraceWithContext starting trace child span from parent span, returning tracer and context
func StartTraceWithContext(ctx context.Context, operationName string) (Tracer, context.Context) {
	t := StartTrace(ctx, operationName)
	return t, t.Context()
}

type noopTracer struct{ ctx context.Context }

func (n noopTracer) Context() context.Context                      { return n.ctx }
func (noopTracer) SetTag(key string, value interface{})            {}
func (noopTracer) SetError(err error)                              {}
func (noopTracer) Log(key string, value interface{})               {}
func (noopTracer) Finish(additionalTags ...map[string]interface{}) {}
