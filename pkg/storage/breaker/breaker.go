// Package breaker wraps github.com/sony/gobreaker's TwoStepCircuitBreaker
// with the state/stats surface and exponential-backoff helper
// SPEC_FULL.md §4.7 calls for: gobreaker's state machine, plus
// consecutive-failure stats, a recoverable/non-recoverable error
// distinction, and calculate_backoff, none of which gobreaker exposes
// on its own.
package breaker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/metrics"
)

// State mirrors gobreaker.State with the names SPEC_FULL.md §4.7 uses.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateOpen
	}
}

// Stats is an immutable snapshot of a breaker's counters.
type Stats struct {
	State               State
	ConsecutiveFailures uint32
	OpenedCount         uint32
	Requests            uint32
}

// Config controls the breaker's threshold, reset timeout, and backoff
// pacing.
type Config struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
	BaseDelay        time.Duration
	MaxDelay         time.Duration
}

// DefaultConfig returns reasonable defaults: trip after 5 consecutive
// recoverable failures, try half-open after 30s.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		BaseDelay:        100 * time.Millisecond,
		MaxDelay:         10 * time.Second,
	}
}

// RecoverableClassifier reports whether err should count toward the
// breaker's failure budget. Validation-style errors never should.
type RecoverableClassifier func(err error) bool

// DefaultClassifier treats everything except InvalidInput and
// InvalidState AppErrors as recoverable.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}
	switch apperrors.GetType(err) {
	case apperrors.ErrorTypeInvalidInput, apperrors.ErrorTypeInvalidState:
		return false
	default:
		return true
	}
}

// ErrCircuitOpen is returned by Call when the breaker rejects a call
// without invoking the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker is a three-state circuit breaker around calls into a backend.
type Breaker struct {
	name        string
	cb          *gobreaker.TwoStepCircuitBreaker
	classifier  RecoverableClassifier
	cfg         Config
	openedAt    time.Time
	openedCount atomic.Uint32
}

// New constructs a Breaker from cfg. classifier may be nil to use
// DefaultClassifier.
func New(cfg Config, classifier RecoverableClassifier) *Breaker {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	b := &Breaker{name: cfg.Name, classifier: classifier, cfg: cfg}

	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, float64(fromGobreakerState(to)))
			if to == gobreaker.StateOpen {
				b.openedAt = time.Now()
				b.openedCount.Add(1)
			}
		},
	})
	metrics.SetCircuitBreakerState(cfg.Name, float64(StateClosed))
	return b
}

// Call executes fn if the breaker permits it, rejecting with
// ErrCircuitOpen otherwise. Only errors the classifier deems
// recoverable count toward the failure budget; non-recoverable errors
// are reported to the breaker as successes, like a nil error, so they
// never trip it.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	done, err := b.cb.Allow()
	if err != nil {
		return ErrCircuitOpen
	}

	opErr := fn(ctx)
	if opErr == nil {
		done(true)
		return nil
	}

	if b.classifier(opErr) {
		done(false)
	} else {
		done(true)
	}
	return opErr
}

// Stats returns an immutable snapshot of the breaker's current counters.
func (b *Breaker) Stats() Stats {
	counts := b.cb.Counts()
	return Stats{
		State:               fromGobreakerState(b.cb.State()),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		OpenedCount:         b.openedCount.Load(),
		Requests:            counts.Requests,
	}
}

// Backoff computes min(base_delay * 2^attempt, max_delay) for retry pacing.
func (cfg Config) Backoff(attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return delay
}

// Reset is an explicit administrative operation that forces the
// breaker back to Closed, clearing its failure counters.
func (b *Breaker) Reset() {
	b.openedCount.Store(0)
	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        b.cfg.Name,
		MaxRequests: 1,
		Timeout:     b.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, float64(fromGobreakerState(to)))
			if to == gobreaker.StateOpen {
				b.openedAt = time.Now()
				b.openedCount.Add(1)
			}
		},
	})
	metrics.SetCircuitBreakerState(b.name, float64(StateClosed))
}
