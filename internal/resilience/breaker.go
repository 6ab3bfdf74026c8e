package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/metrics"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type breaker struct {
	mu            sync.Mutex
	state         breakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// BreakerRegistry holds one circuit breaker per logical endpoint name.
// State is shared across all concurrent callers of that endpoint.
type BreakerRegistry struct {
	mu        sync.RWMutex
	breakers  map[string]*breaker
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func NewBreakerRegistry(threshold int, cooldown time.Duration) *BreakerRegistry {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &BreakerRegistry{
		breakers:  make(map[string]*breaker),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (r *BreakerRegistry) get(endpoint string) *breaker {
	r.mu.RLock()
	b, ok := r.breakers[endpoint]
	r.mu.RUnlock()
	if ok {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[endpoint]; ok {
		return b
	}
	b = &breaker{}
	r.breakers[endpoint] = b
	return b
}

// Allow reports whether a call to endpoint may proceed. While open it fails
// fast with ErrCircuitOpen; once the cooldown has elapsed it half-opens and
// lets exactly one trial call through.
func (r *BreakerRegistry) Allow(ctx context.Context, endpoint string) error {
	b := r.get(endpoint)
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		if r.now().Sub(b.openedAt) < r.cooldown {
			return ErrCircuitOpen
		}
		b.state = stateHalfOpen
		b.trialInFlight = true
		r.transition(ctx, endpoint, stateHalfOpen)
		return nil
	default: // half-open
		if b.trialInFlight {
			return ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}
}

// Record feeds a call outcome back into the breaker. Only transient
// failures should be recorded; non-retryable errors never touch the breaker.
func (r *BreakerRegistry) Record(ctx context.Context, endpoint string, success bool) {
	b := r.get(endpoint)
	b.mu.Lock()
	defer b.mu.Unlock()
	if success {
		if b.state != stateClosed {
			r.transition(ctx, endpoint, stateClosed)
		}
		b.state = stateClosed
		b.failures = 0
		b.trialInFlight = false
		return
	}
	b.trialInFlight = false
	b.failures++
	if b.state == stateHalfOpen || b.failures >= r.threshold {
		if b.state != stateOpen {
			r.transition(ctx, endpoint, stateOpen)
		}
		b.state = stateOpen
		b.openedAt = r.now()
	}
}

func (r *BreakerRegistry) transition(ctx context.Context, endpoint string, next breakerState) {
	metrics.BreakerTransitions.WithLabelValues(endpoint, next.String()).Inc()
	logutil.GetLogger(ctx).Warn("circuit breaker transition",
		zap.String("endpoint", endpoint),
		zap.String("state", next.String()),
	)
}

// State returns the current state name for an endpoint, mainly for tests
// and diagnostics.
func (r *BreakerRegistry) State(endpoint string) string {
	b := r.get(endpoint)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}
