package broker

import (
	"context"

	"github.com/golangid/obsbot/candihelper"
)

// Broker holds one RabbitMQ connection per backend domain
type Broker struct {
	brokers map[string]*RabbitMQBroker
}

// InitBrokers register connections, one per backend
func InitBrokers(brokers ...*RabbitMQBroker) *Broker {
	brokerInst := &Broker{
		brokers: make(map[string]*RabbitMQBroker),
	}
	for _, bk := range brokers {
		brokerInst.RegisterBroker(bk)
	}
	return brokerInst
}

// GetBroker connection of backend domain
func (b *Broker) GetBroker(domain string) (*RabbitMQBroker, bool) {
	bk, ok := b.brokers[domain]
	return bk, ok
}

// RegisterBroker register new connection, a backend can only be registered once
func (b *Broker) RegisterBroker(bk *RabbitMQBroker) {
	if b.brokers == nil {
		b.brokers = make(map[string]*RabbitMQBroker)
	}

	if _, ok := b.brokers[bk.Name()]; ok {
		panic("Register broker: " + bk.Name() + " has been registered")
	}
	b.brokers[bk.Name()] = bk
}

// Health of every registered connection
func (b *Broker) Health() map[string]error {
	res := make(map[string]error, len(b.brokers))
	for name, bk := range b.brokers {
		res[name] = bk.Health()
	}
	return res
}

// Disconnect disconnect all registered broker
func (b *Broker) Disconnect(ctx context.Context) error {
	mErr := candihelper.NewMultiError()

	for name, bk := range b.brokers {
		mErr.Append(name, bk.Disconnect(ctx))
	}

	if mErr.HasError() {
		return mErr
	}
	return nil
}
