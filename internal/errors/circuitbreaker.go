// internal/errors/circuitbreaker.go
package errors

import (
	"sync"
	"time"
)

// CircuitBreakerState mirrors the classic closed/open/half-open states,
// adapted from the teacher's internal/errors/service.go.
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	MaxFailures      int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" json:"half_open_max_calls"`
	SuccessThreshold int           `yaml:"success_threshold" json:"success_threshold"`
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:      60 * time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker guards a single named operation (e.g. one source's
// extractor, or one proxy-validation pipeline) against hammering a target
// that is already failing.
type CircuitBreaker struct {
	name            string
	config          CircuitBreakerConfig
	state           CircuitBreakerState
	failures        int
	consecutiveOK   int
	halfOpenCalls   int
	nextAttemptTime time.Time
	mu              sync.Mutex
}

func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{name: name, config: config, state: CircuitClosed}
}

// CanExecute reports whether a call should be attempted right now,
// transitioning Open -> HalfOpen once ResetTimeout has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Now().After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			cb.halfOpenCalls = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.consecutiveOK++
		if cb.consecutiveOK >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.consecutiveOK = 0
		}
	default:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveOK = 0
	cb.failures++

	if cb.state == CircuitHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.state = CircuitOpen
		cb.nextAttemptTime = time.Now().Add(cb.config.ResetTimeout)
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Registry hands out circuit breakers keyed by operation name, lazily
// constructing them with DefaultCircuitBreakerConfig.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(name, DefaultCircuitBreakerConfig())
	r.breakers[name] = cb
	return cb
}
