package rabbitmqworker

import "github.com/golangid/obsbot/broker"

type (
	option struct {
		consumerGroup string
		exchange      string
		maxGoroutines int
		debugMode     bool
		lazy          bool
	}

	// OptionFunc type
	OptionFunc func(*option)
)

func getDefaultOption() option {
	return option{
		exchange:      broker.ExchangeName,
		maxGoroutines: 10,
		debugMode:     true,
	}
}

// SetMaxGoroutines option func, number of deliveries processed concurrently
func SetMaxGoroutines(maxGoroutines int) OptionFunc {
	return func(o *option) {
		if maxGoroutines > 0 {
			o.maxGoroutines = maxGoroutines
		}
	}
}

// SetDebugMode option func
func SetDebugMode(debugMode bool) OptionFunc {
	return func(o *option) {
		o.debugMode = debugMode
	}
}

// SetConsumerGroup option func, prefix of the consumer tag
func SetConsumerGroup(consumerGroup string) OptionFunc {
	return func(o *option) {
		o.consumerGroup = consumerGroup
	}
}

// SetExchange option func, default broker.ExchangeName
func SetExchange(exchange string) OptionFunc {
	return func(o *option) {
		o.exchange = exchange
	}
}

// SetLazy option func, bind on first Activate instead of at Serve
func SetLazy(lazy bool) OptionFunc {
	return func(o *option) {
		o.lazy = lazy
	}
}
