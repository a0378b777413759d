package rabbitmqworker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap/zapcore"

	"github.com/golangid/obsbot/backend"
	"github.com/golangid/obsbot/broker"
	"github.com/golangid/obsbot/logger"
	"github.com/golangid/obsbot/subscription"
	"github.com/golangid/obsbot/tracer"
)

// State of a listener
type State string

const (
	// StateIdle lazy listener waiting for its first subscription
	StateIdle State = "idle"
	// StateBinding a binding attempt is in progress
	StateBinding State = "binding"
	// StateConsuming queue bound and consumed
	StateConsuming State = "consuming"
	// StateFailed last binding attempt failed
	StateFailed State = "failed"
	// StateClosed the broker closed the delivery channel
	StateClosed State = "closed"
	// StateStopped listener shut down
	StateStopped State = "stopped"
)

// Handler of the deliveries of one domain
type Handler interface {
	Scope() string
	RoutingKeys() []string
	Dispatch(ctx context.Context, routingKey string, body []byte) error
}

// ChannelOpener open a broker channel, implemented by *broker.RabbitMQBroker
type ChannelOpener interface {
	Channel() (broker.Channel, error)
}

// Listener one private queue of one backend, shared by its handlers. Eager
// listeners bind in Serve, lazy ones on the first Activate.
type Listener struct {
	ctx           context.Context
	ctxCancelFunc func()

	name     string
	details  backend.Details
	opener   ChannelOpener
	handlers []Handler
	opt      option

	mu       sync.Mutex
	state    State
	ch       broker.Channel
	lastErr  error
	bindDone chan struct{}
	shutdown chan struct{}
	stopOnce sync.Once

	semaphore chan struct{}
	wg        sync.WaitGroup
	loops     sync.WaitGroup
}

// NewListener create listener, the routing keys of every handler are scoped to details
func NewListener(name string, details backend.Details, opener ChannelOpener, handlers []Handler, opts ...OptionFunc) *Listener {
	l := &Listener{
		name:     name,
		details:  details,
		opener:   opener,
		handlers: handlers,
		opt:      getDefaultOption(),
		state:    StateIdle,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&l.opt)
	}
	l.ctx, l.ctxCancelFunc = context.WithCancel(context.Background())
	l.semaphore = make(chan struct{}, l.opt.maxGoroutines)

	for _, h := range handlers {
		logger.LogYellow(fmt.Sprintf(`[RABBITMQ-CONSUMER] (scope): %-25s --> (keys): %s`, `"`+h.Scope()+`"`, strings.Join(h.RoutingKeys(), ", ")))
	}
	return l
}

// Serve implement factory.AppServerFactory, block until Shutdown
func (l *Listener) Serve() {
	if !l.opt.lazy {
		if err := l.Activate(l.ctx); err != nil {
			logger.Log(zapcore.ErrorLevel, err.Error(), "rabbitmq_consumer", l.name)
		}
	}
	<-l.shutdown
}

// Shutdown stop consuming and wait running deliveries
func (l *Listener) Shutdown(ctx context.Context) {
	logger.LogYellow("Stopping RabbitMQ listener " + l.name + "...")

	l.stopOnce.Do(func() { close(l.shutdown) })
	l.loops.Wait()

	if running := len(l.semaphore); running != 0 {
		logger.LogYellow(fmt.Sprintf("RabbitMQ listener %s: waiting %d job until done...", l.name, running))
	}
	l.wg.Wait()

	l.mu.Lock()
	if l.ch != nil {
		logger.LogIfError(l.ch.Close())
		l.ch = nil
	}
	l.state = StateStopped
	l.mu.Unlock()
	l.ctxCancelFunc()
}

// Name implement factory.AppServerFactory
func (l *Listener) Name() string {
	return "rabbitmq:" + l.name
}

// Lazy tell whether the listener binds on demand
func (l *Listener) Lazy() bool {
	return l.opt.lazy
}

// State current state and last binding error
func (l *Listener) State() (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.lastErr
}

// Activate implement subscription.Binding. Bind and start consuming unless
// already consuming, a failed attempt is retried on the next call. A call
// made while another one is binding waits for its outcome.
func (l *Listener) Activate(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case StateConsuming, StateStopped:
		l.mu.Unlock()
		return nil
	case StateBinding:
		done := l.bindDone
		l.mu.Unlock()
		return l.waitBinding(ctx, done)
	}
	select {
	case <-l.shutdown:
		l.mu.Unlock()
		return nil
	default:
	}
	done := make(chan struct{})
	l.state, l.bindDone = StateBinding, done
	l.mu.Unlock()
	defer close(done)

	ch, deliveries, err := l.bind()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopping() {
		if ch != nil {
			logger.LogIfError(ch.Close())
		}
		return nil
	}
	if err != nil {
		l.state, l.lastErr = StateFailed, err
		return err
	}
	l.ch = ch
	l.state, l.lastErr = StateConsuming, nil
	logger.LogIf("rabbitmq %s: consuming %d routing keys", l.name, len(l.routingKeys()))

	l.loops.Add(1)
	go l.consume(deliveries)
	return nil
}

func (l *Listener) stopping() bool {
	if l.state == StateStopped {
		return true
	}
	select {
	case <-l.shutdown:
		return true
	default:
		return false
	}
}

func (l *Listener) waitBinding(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if state, err := l.State(); state == StateFailed {
		return err
	}
	return nil
}

// bind run without holding mu, the broker may take its time to answer
func (l *Listener) bind() (broker.Channel, <-chan amqp.Delivery, error) {
	ch, err := l.opener.Channel()
	if err != nil {
		return nil, nil, err
	}

	consumerTag := uuid.NewString()
	if l.opt.consumerGroup != "" {
		consumerTag = l.opt.consumerGroup + "_" + consumerTag
	}
	deliveries, err := broker.Bind(ch, broker.BindConfig{
		Exchange:    l.opt.exchange,
		Backend:     l.details,
		RoutingKeys: l.routingKeys(),
		Prefetch:    l.opt.maxGoroutines,
		ConsumerTag: consumerTag,
	})
	if err != nil {
		logger.LogIfError(ch.Close())
		return nil, nil, err
	}
	return ch, deliveries, nil
}

func (l *Listener) routingKeys() []string {
	var keys []string
	for _, h := range l.handlers {
		keys = append(keys, h.RoutingKeys()...)
	}
	return keys
}

func (l *Listener) consume(deliveries <-chan amqp.Delivery) {
	defer l.loops.Done()

	for {
		select {
		case <-l.shutdown:
			return

		case msg, ok := <-deliveries:
			if !ok {
				l.closed()
				return
			}

			l.semaphore <- struct{}{}
			l.wg.Add(1)
			go func(message amqp.Delivery) {
				defer func() {
					<-l.semaphore
					l.wg.Done()
				}()
				l.processMessage(message)
			}(msg)
		}
	}
}

func (l *Listener) closed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateConsuming {
		l.state = StateClosed
		l.ch = nil
		logger.Log(zapcore.WarnLevel, "delivery channel closed by broker", "rabbitmq_consumer", l.name)
	}
}

func (l *Listener) route(routingKey string) Handler {
	for _, h := range l.handlers {
		for _, key := range h.RoutingKeys() {
			if strings.Contains(routingKey, key) {
				return h
			}
		}
	}
	return nil
}

// processMessage always ack exactly once, whatever the handler returns
func (l *Listener) processMessage(message amqp.Delivery) {
	scope := l.name
	var err error
	trace, ctx := tracer.StartTraceWithContext(l.ctx, "RabbitMQConsumer")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		if ackErr := message.Ack(false); ackErr != nil {
			logger.Log(zapcore.ErrorLevel, "ack: "+ackErr.Error(), "rabbitmq_consumer", scope)
		}
		if err != nil {
			logger.Log(zapcore.ErrorLevel, fmt.Sprintf("%s: %v", message.RoutingKey, err), "rabbitmq_consumer", scope)
		}

		trace.SetError(err)
		trace.Finish()
	}()

	trace.SetTag("exchange", message.Exchange)
	trace.SetTag("routing_key", message.RoutingKey)
	if l.opt.debugMode {
		trace.Log("body", message.Body)
	}

	handler := l.route(message.RoutingKey)
	if handler == nil {
		err = &subscription.DomainError{RoutingKey: message.RoutingKey, Err: subscription.ErrUnknownRoutingKey}
		return
	}
	scope = handler.Scope()
	trace.SetTag("scope", scope)

	err = handler.Dispatch(ctx, message.RoutingKey, message.Body)
}
