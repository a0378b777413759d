package tracer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	ext "github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"
	config "github.com/uber/jaeger-client-go/config"

	"github.com/golangid/obsbot/candihelper"
)

var enabled atomic.Bool

// InitOpenTracing init jaeger tracing, returned closer flushes buffered spans
func InitOpenTracing(serviceName, agentHost string) (io.Closer, error) {
	cfg := &config.Configuration{
		Sampler: &config.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &config.ReporterConfig{
			LogSpans:            false,
			BufferFlushInterval: 1 * time.Second,
			LocalAgentHostPort:  agentHost,
		},
		ServiceName: serviceName,
		Tags: []opentracing.Tag{
			{Key: "num_cpu", Value: runtime.NumCPU()},
			{Key: "go_version", Value: runtime.Version()},
			{Key: "bot_version", Value: candihelper.Version},
		},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("cannot init opentracing connection: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)
	enabled.Store(true)
	return closer, nil
}

type jaegerImpl struct {
	ctx  context.Context
	span opentracing.Span
	tags map[string]interface{}
}

// StartTrace starting trace child span from parent span, noop when tracing is not initialised
func StartTrace(ctx context.Context, operationName string) Tracer {
	if !enabled.Load() {
		return &noopTracer{ctx}
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, operationName)
	return &jaegerImpl{
		ctx:  ctx,
		span: span,
		tags: make(map[string]interface{}),
	}
}

// Context get active context
func (t *jaegerImpl) Context() context.Context {
	return t.ctx
}

// SetTag set tags in tracer span
func (t *jaegerImpl) SetTag(key string, value interface{}) {
	t.tags[key] = value
}

// SetError set error in span
func (t *jaegerImpl) SetError(err error) {
	if err == nil {
		return
	}
	ext.Error.Set(t.span, true)
	t.span.LogFields(otlog.String("error", err.Error()))
}

// Log key value into span
func (t *jaegerImpl) Log(key string, value interface{}) {
	t.span.LogFields(otlog.String(key, toString(value)))
}

// Finish trace with additional tags data, must in deferred function
func (t *jaegerImpl) Finish(additionalTags ...map[string]interface{}) {
	defer t.span.Finish()

	for _, tag := range additionalTags {
		for k, v := range tag {
			t.tags[k] = v
		}
	}
	for k, v := range t.tags {
		t.span.SetTag(k, toString(v))
	}
	t.span.SetTag("num_goroutines", runtime.NumGoroutine())
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
