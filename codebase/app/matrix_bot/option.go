package matrixbot

import "time"

type (
	option struct {
		syncTimeout   time.Duration
		retryDelay    time.Duration
		maxGoroutines int
		seenTTL       time.Duration
		autoJoin      bool
	}

	// OptionFunc type
	OptionFunc func(*option)
)

func getDefaultOption() option {
	return option{
		syncTimeout:   30 * time.Second,
		retryDelay:    5 * time.Second,
		maxGoroutines: 10,
		seenTTL:       time.Hour,
		autoJoin:      true,
	}
}

// SetSyncTimeout option func, server side long-poll timeout
func SetSyncTimeout(timeout time.Duration) OptionFunc {
	return func(o *option) {
		o.syncTimeout = timeout
	}
}

// SetRetryDelay option func, wait after a failed sync
func SetRetryDelay(delay time.Duration) OptionFunc {
	return func(o *option) {
		o.retryDelay = delay
	}
}

// SetMaxGoroutines option func, number of messages handled concurrently
func SetMaxGoroutines(maxGoroutines int) OptionFunc {
	return func(o *option) {
		if maxGoroutines > 0 {
			o.maxGoroutines = maxGoroutines
		}
	}
}

// SetSeenTTL option func, how long event ids are remembered for de-duplication
func SetSeenTTL(ttl time.Duration) OptionFunc {
	return func(o *option) {
		o.seenTTL = ttl
	}
}

// SetAutoJoin option func, join rooms on invite
func SetAutoJoin(autoJoin bool) OptionFunc {
	return func(o *option) {
		o.autoJoin = autoJoin
	}
}
