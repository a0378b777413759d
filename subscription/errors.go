package subscription

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryUnavailable the registry lock is poisoned by an earlier panic
	ErrRegistryUnavailable = errors.New("subscription registry unavailable")

	// ErrUnknownRoutingKey no route of the domain matches the routing key
	ErrUnknownRoutingKey = errors.New("unknown routing key")
)

// ParseError chat text could not be decoded into a key
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Line, e.Reason)
}

// DomainError delivery could not be turned into a notification, the delivery is dropped
type DomainError struct {
	RoutingKey string
	Err        error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("event %s: %v", e.RoutingKey, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}
