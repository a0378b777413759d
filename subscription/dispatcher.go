package subscription

import (
	"context"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/logger"
	"github.com/golangid/obsbot/tracer"
)

// Dispatch one delivery: decode, classify, look up rooms, render and send.
// Returns *DomainError for undecodable or unroutable events; nothing is sent then.
// Acknowledgement is the caller's task.
func (s *Subscriber[K, E]) Dispatch(ctx context.Context, routingKey string, body []byte) (err error) {
	trace, ctx := tracer.StartTraceWithContext(ctx, "Subscriber:Dispatch")
	defer func() {
		trace.SetError(err)
		trace.Finish()
	}()
	trace.SetTag("scope", s.scope)
	trace.SetTag("routing_key", routingKey)

	event, err := s.domain.DecodeEvent(body)
	if err != nil {
		return &DomainError{RoutingKey: routingKey, Err: fmt.Errorf("decode payload: %w", err)}
	}

	change, ok := Classify(s.domain.Routes(), routingKey)
	if !ok {
		return &DomainError{RoutingKey: routingKey, Err: ErrUnknownRoutingKey}
	}

	key := s.domain.EventKey(event)
	trace.SetTag("key", key.String())

	rooms, err := s.registry.Lookup(key)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		return nil
	}

	msg := s.domain.Render(event, change, s.Link(key))
	logger.Log(zapcore.InfoLevel, msg.Plain, "dispatcher", s.scope)

	mErr := candihelper.NewMultiError()
	for _, room := range rooms {
		mErr.Append(room.String(), s.sender.SendHTML(ctx, room, msg.Plain, msg.HTML))
	}
	trace.SetTag("rooms", len(rooms))
	if mErr.HasError() {
		return fmt.Errorf("notify %s: %w", key, mErr)
	}
	return nil
}
