package broker

import (
	"context"
	"errors"

	"github.com/streadway/amqp"

	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/logger"
)

// ErrNotConnected the broker has no open connection
var ErrNotConnected = errors.New("rabbitmq: not connected")

// Channel subset of *amqp.Channel used to bind and consume
type Channel interface {
	ExchangeDeclarePassive(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// RabbitMQOptionFunc func type
type RabbitMQOptionFunc func(*RabbitMQBroker)

// RabbitMQSetBrokerHost set custom broker url
func RabbitMQSetBrokerHost(brokerURL string) RabbitMQOptionFunc {
	return func(bk *RabbitMQBroker) {
		bk.brokerHost = brokerURL
	}
}

// RabbitMQSetChannelOpener open channels without dialing, for tests
func RabbitMQSetChannelOpener(opener func() (Channel, error)) RabbitMQOptionFunc {
	return func(bk *RabbitMQBroker) {
		bk.opener = opener
	}
}

// RabbitMQBroker connection to the broker of one backend
type RabbitMQBroker struct {
	name       string
	brokerHost string
	conn       *amqp.Connection
	opener     func() (Channel, error)
}

// NewRabbitMQBroker connect to brokerURL, name is the backend domain
func NewRabbitMQBroker(name, brokerURL string, opts ...RabbitMQOptionFunc) (*RabbitMQBroker, error) {
	rabbitmq := &RabbitMQBroker{name: name, brokerHost: brokerURL}
	for _, opt := range opts {
		opt(rabbitmq)
	}
	if rabbitmq.opener != nil {
		return rabbitmq, nil
	}

	conn, err := amqp.Dial(rabbitmq.brokerHost)
	if err != nil {
		return nil, &BindingError{Step: StepDial, Target: name, Err: err}
	}
	logger.LogIf("rabbitmq %s: connected to %s", name, rabbitmq.URL())
	rabbitmq.conn = conn
	rabbitmq.opener = func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, &BindingError{Step: StepChannel, Target: name, Err: err}
		}
		return ch, nil
	}
	return rabbitmq, nil
}

// Name backend domain of this connection
func (r *RabbitMQBroker) Name() string {
	return r.name
}

// URL of the broker with password masked
func (r *RabbitMQBroker) URL() string {
	return candihelper.MaskingPasswordURL(r.brokerHost)
}

// Channel open a new channel, each binding owns its channel
func (r *RabbitMQBroker) Channel() (Channel, error) {
	if r.opener == nil {
		return nil, ErrNotConnected
	}
	return r.opener()
}

// Health method
func (r *RabbitMQBroker) Health() error {
	if r.conn != nil && r.conn.IsClosed() {
		return ErrNotConnected
	}
	return nil
}

// Disconnect method
func (r *RabbitMQBroker) Disconnect(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	deferFunc := logger.LogWithDefer("rabbitmq " + r.name + ": disconnect...")
	defer deferFunc()

	return r.conn.Close()
}
