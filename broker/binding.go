package broker

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/golangid/obsbot/backend"
)

const (
	// ExchangeName shared topic exchange, declared by the build service
	ExchangeName = "pubsub"
	// ExchangeKind of ExchangeName
	ExchangeKind = "topic"
)

// Binding steps reported in BindingError
const (
	StepDial            = "dial"
	StepChannel         = "channel"
	StepQos             = "qos"
	StepExchangeDeclare = "exchange_declare"
	StepQueueDeclare    = "queue_declare"
	StepQueueBind       = "queue_bind"
	StepConsume         = "consume"
)

// BindingError failing step of a broker setup
type BindingError struct {
	Step   string
	Target string
	Err    error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("rabbitmq %s %s: %v", e.Step, e.Target, e.Err)
}

// Unwrap implement errors.Unwrap
func (e *BindingError) Unwrap() error {
	return e.Err
}

// Cause implement github.com/pkg/errors causer
func (e *BindingError) Cause() error {
	return errors.Cause(e.Err)
}

// BindConfig of one private queue
type BindConfig struct {
	// Exchange defaults to ExchangeName
	Exchange string
	// Backend scopes every routing key, {scope}.{key}
	Backend     backend.Details
	RoutingKeys []string
	// Prefetch unacked deliveries per consumer, 0 means no limit
	Prefetch int
	// ConsumerTag defaults to a random uuid
	ConsumerTag string
}

// Bind declare a server named private queue on the passive exchange, bind it
// once per routing key and start consuming without auto ack
func Bind(ch Channel, cfg BindConfig) (<-chan amqp.Delivery, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}
	if cfg.ConsumerTag == "" {
		cfg.ConsumerTag = uuid.NewString()
	}

	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			return nil, wrapStep(StepQos, cfg.Backend.RabbitScope, err)
		}
	}

	if err := ch.ExchangeDeclarePassive(
		cfg.Exchange, // name
		ExchangeKind, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,
	); err != nil {
		return nil, wrapStep(StepExchangeDeclare, cfg.Exchange, err)
	}

	queue, err := ch.QueueDeclare(
		"",    // server named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, wrapStep(StepQueueDeclare, cfg.Backend.RabbitScope, err)
	}

	for _, key := range cfg.RoutingKeys {
		pattern := cfg.Backend.Scoped(key)
		if err := ch.QueueBind(queue.Name, pattern, cfg.Exchange, false, nil); err != nil {
			return nil, wrapStep(StepQueueBind, pattern, err)
		}
	}

	deliveries, err := ch.Consume(
		queue.Name,
		cfg.ConsumerTag, // consumer
		false,           // auto-ack
		true,            // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, wrapStep(StepConsume, queue.Name, err)
	}
	return deliveries, nil
}

func wrapStep(step, target string, err error) error {
	return &BindingError{Step: step, Target: target, Err: errors.WithStack(err)}
}
