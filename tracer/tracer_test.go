package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartTraceNoop(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "v")
	trace, traceCtx := StartTraceWithContext(ctx, "RabbitMQConsumer")

	assert.IsType(t, &noopTracer{}, trace)
	assert.Equal(t, ctx, traceCtx)

	trace.SetTag("routing_key", "opensuse.obs.package.build_fail")
	trace.SetError(errors.New("boom"))
	trace.Log("body", []byte("{}"))
	trace.Finish(map[string]interface{}{"acked": true})
}

func TestToString(t *testing.T) {
	assert.Equal(t, "abc", toString("abc"))
	assert.Equal(t, "raw", toString([]byte("raw")))
	assert.Equal(t, "boom", toString(errors.New("boom")))
	assert.Equal(t, `{"a":1}`, toString(map[string]int{"a": 1}))
}
