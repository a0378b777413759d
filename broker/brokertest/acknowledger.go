package brokertest

import (
	"sync"

	"github.com/streadway/amqp"
)

// Acknowledger fake amqp.Acknowledger counting acks per delivery tag
type Acknowledger struct {
	mu     sync.Mutex
	acks   map[uint64]int
	nacks  map[uint64]int
	notify chan uint64
}

// NewAcknowledger constructor
func NewAcknowledger() *Acknowledger {
	return &Acknowledger{
		acks:   map[uint64]int{},
		nacks:  map[uint64]int{},
		notify: make(chan uint64, 64),
	}
}

// Ack implement amqp.Acknowledger
func (a *Acknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks[tag]++
	a.mu.Unlock()
	a.notify <- tag
	return nil
}

// Nack implement amqp.Acknowledger
func (a *Acknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks[tag]++
	return nil
}

// Reject implement amqp.Acknowledger
func (a *Acknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

// Acked channel receiving the tag of every ack
func (a *Acknowledger) Acked() <-chan uint64 {
	return a.notify
}

// Acks number of acks of tag
func (a *Acknowledger) Acks(tag uint64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks[tag]
}

// Nacks number of nacks and rejects of tag
func (a *Acknowledger) Nacks(tag uint64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nacks[tag]
}

// Delivery build a delivery acknowledged through a
func (a *Acknowledger) Delivery(tag uint64, routingKey string, body []byte) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: a,
		DeliveryTag:  tag,
		Exchange:     "pubsub",
		RoutingKey:   routingKey,
		Body:         body,
	}
}
