package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/metrics"
)

// Config controls retry and breaker behavior for one Wrapper.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the backoff for the first retry. Default: 500ms
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff. Default: 8s
	MaxDelay time.Duration

	// JitterFactor scales each delay by (1 ± JitterFactor). Default: 0.2
	JitterFactor float64

	// FailThreshold consecutive transient failures open the breaker.
	// Default: 5
	FailThreshold int

	// Cooldown is how long an open breaker fails fast before half-opening.
	// Default: 30s
	Cooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 8 * time.Second
	}
	if c.JitterFactor == 0 {
		c.JitterFactor = 0.2
	}
	if c.FailThreshold == 0 {
		c.FailThreshold = 5
	}
	if c.Cooldown == 0 {
		c.Cooldown = 30 * time.Second
	}
}

// Wrapper decorates remote calls with retry (exponential backoff + jitter,
// transient errors only) and a per-endpoint circuit breaker.
type Wrapper struct {
	cfg      Config
	breakers *BreakerRegistry
	sleep    func(ctx context.Context, d time.Duration) error
	randFn   func() float64
}

func New(cfg Config) *Wrapper {
	cfg.applyDefaults()
	return &Wrapper{
		cfg:      cfg,
		breakers: NewBreakerRegistry(cfg.FailThreshold, cfg.Cooldown),
		sleep:    sleepCtx,
		randFn:   rand.Float64,
	}
}

// Breakers exposes the registry so callers can inspect endpoint state.
func (w *Wrapper) Breakers() *BreakerRegistry {
	return w.breakers
}

// Do runs fn under the retry/breaker policy for the named endpoint.
// Non-transient errors return immediately without breaker bookkeeping.
func (w *Wrapper) Do(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	if err := w.breakers.Allow(ctx, endpoint); err != nil {
		metrics.RemoteAttempts.WithLabelValues(endpoint, "circuit_open").Inc()
		return err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("endpoint", endpoint))
	var lastErr error
	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := w.sleep(ctx, w.backoffDelay(attempt-1)); err != nil {
				return err
			}
			if err := w.breakers.Allow(ctx, endpoint); err != nil {
				metrics.RemoteAttempts.WithLabelValues(endpoint, "circuit_open").Inc()
				return err
			}
		}
		err := fn(ctx)
		if err == nil {
			w.breakers.Record(ctx, endpoint, true)
			metrics.RemoteAttempts.WithLabelValues(endpoint, "success").Inc()
			if attempt > 0 {
				logger.Info("remote call recovered", zap.Int("attempts", attempt+1))
			}
			return nil
		}
		if !IsTransient(err) {
			metrics.RemoteAttempts.WithLabelValues(endpoint, "fatal").Inc()
			return err
		}
		lastErr = err
		w.breakers.Record(ctx, endpoint, false)
		metrics.RemoteAttempts.WithLabelValues(endpoint, "failure").Inc()
		logger.Warn("remote call failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return lastErr
}

// backoffDelay computes min(maxDelay, base*2^attempt) * (1 ± jitter).
func (w *Wrapper) backoffDelay(attempt int) time.Duration {
	base := float64(w.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if capped := float64(w.cfg.MaxDelay); base > capped {
		base = capped
	}
	jitter := 1 + w.cfg.JitterFactor*(2*w.randFn()-1)
	return time.Duration(base * jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, w *Wrapper, endpoint string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := w.Do(ctx, endpoint, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}
