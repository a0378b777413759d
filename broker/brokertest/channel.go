// Package brokertest provides in-memory AMQP fakes for tests.
package brokertest

import (
	"sync"

	"github.com/streadway/amqp"
)

// Bind recorded QueueBind call
type Bind struct {
	Queue, Key, Exchange string
}

// Channel fake broker.Channel. Fail holds the error returned by a step, by method name.
type Channel struct {
	mu sync.Mutex

	Fail       map[string]error
	QueueName  string
	Deliveries chan amqp.Delivery

	PassiveExchanges []string
	Binds            []Bind
	ConsumerTags     []string
	Prefetch         int
	Closed           bool
}

// NewChannel fake with a buffered delivery channel
func NewChannel() *Channel {
	return &Channel{
		Fail:       map[string]error{},
		QueueName:  "amq.gen-test",
		Deliveries: make(chan amqp.Delivery, 16),
	}
}

func (c *Channel) fail(step string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Fail[step]
}

// ExchangeDeclarePassive implement broker.Channel
func (c *Channel) ExchangeDeclarePassive(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if err := c.fail("ExchangeDeclarePassive"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PassiveExchanges = append(c.PassiveExchanges, name)
	return nil
}

// QueueDeclare implement broker.Channel
func (c *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if err := c.fail("QueueDeclare"); err != nil {
		return amqp.Queue{}, err
	}
	return amqp.Queue{Name: c.QueueName}, nil
}

// QueueBind implement broker.Channel
func (c *Channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	if err := c.fail("QueueBind"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Binds = append(c.Binds, Bind{Queue: name, Key: key, Exchange: exchange})
	return nil
}

// Consume implement broker.Channel
func (c *Channel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if err := c.fail("Consume"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ConsumerTags = append(c.ConsumerTags, consumer)
	return c.Deliveries, nil
}

// Qos implement broker.Channel
func (c *Channel) Qos(prefetchCount, prefetchSize int, global bool) error {
	if err := c.fail("Qos"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prefetch = prefetchCount
	return nil
}

// Close implement broker.Channel
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// BindKeys recorded binding patterns
func (c *Channel) BindKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, len(c.Binds))
	for i, b := range c.Binds {
		keys[i] = b.Key
	}
	return keys
}

// IsClosed tell whether Close was called
func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Closed
}
