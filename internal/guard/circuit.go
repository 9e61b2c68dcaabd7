// Package guard protects the outbox relay from a failing broker.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while a circuit rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker keeps one circuit per key (a Kafka topic for the relay).
type CircuitBreaker struct {
	mu            sync.Mutex
	circuits      map[string]*circuit
	failThreshold int
	resetTimeout  time.Duration
	now           func() time.Time
}

type circuit struct {
	state       CircuitState
	failures    int
	probing     bool
	lastFailure time.Time
}

// NewCircuitBreaker opens a circuit after failThreshold consecutive failures
// and lets a single probe through once resetTimeout has passed.
func NewCircuitBreaker(failThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	return &CircuitBreaker{
		circuits:      make(map[string]*circuit),
		failThreshold: failThreshold,
		resetTimeout:  resetTimeout,
		now:           time.Now,
	}
}

func (cb *CircuitBreaker) get(key string) *circuit {
	c, ok := cb.circuits[key]
	if !ok {
		c = &circuit{state: CircuitClosed}
		cb.circuits[key] = c
	}
	return c
}

// Allow returns nil when a call for key may proceed.
func (cb *CircuitBreaker) Allow(key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(key)
	switch c.state {
	case CircuitOpen:
		wait := cb.resetTimeout - cb.now().Sub(c.lastFailure)
		if wait > 0 {
			return fmt.Errorf("%w for %s, resets in %s", ErrCircuitOpen, key, wait.Round(time.Millisecond))
		}
		c.state = CircuitHalfOpen
		c.probing = true
		return nil
	case CircuitHalfOpen:
		if c.probing {
			return fmt.Errorf("%w for %s, probe in flight", ErrCircuitOpen, key)
		}
		c.probing = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the circuit for key.
func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(key)
	c.state = CircuitClosed
	c.failures = 0
	c.probing = false
}

// RecordFailure counts a failure; a failed probe reopens the circuit at once.
func (cb *CircuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(key)
	c.failures++
	c.lastFailure = cb.now()
	if c.state == CircuitHalfOpen || c.failures >= cb.failThreshold {
		c.state = CircuitOpen
	}
	c.probing = false
}

// State reports the current state of the circuit for key.
func (cb *CircuitBreaker) State(key string) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.get(key).state
}

// Publisher delivers one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// CircuitPublisher short-circuits publishes to topics whose circuit is open.
type CircuitPublisher struct {
	next    Publisher
	breaker *CircuitBreaker
}

// NewCircuitPublisher wraps next with breaker.
func NewCircuitPublisher(next Publisher, breaker *CircuitBreaker) *CircuitPublisher {
	return &CircuitPublisher{next: next, breaker: breaker}
}

// Publish forwards to the wrapped publisher unless the topic's circuit is open.
func (p *CircuitPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.breaker.Allow(topic); err != nil {
		return err
	}
	if err := p.next.Publish(ctx, topic, key, value); err != nil {
		if ctx.Err() == nil {
			p.breaker.RecordFailure(topic)
		}
		return err
	}
	p.breaker.RecordSuccess(topic)
	return nil
}
