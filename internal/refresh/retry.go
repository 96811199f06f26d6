package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves one snapshot from the provider.
type Fetcher interface {
	GetStates(ctx context.Context, q domain.Query) (*domain.Snapshot, error)
}

// Retrier wraps a Fetcher with bounded exponential backoff.
type Retrier struct {
	fetcher     Fetcher
	maxAttempts int
	maxBackoff  time.Duration
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewRetrier creates a Retrier. A nil clock uses real time.
func NewRetrier(f Fetcher, cfg config.RetryConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Retrier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Retrier{
		fetcher:     f,
		maxAttempts: max(cfg.MaxRetries, 1),
		maxBackoff:  cfg.MaxBackoff,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
	}
}

// Fetch calls the fetcher until it returns a non-empty snapshot or the
// attempts run out. An empty snapshot counts as a failure. Every failure kind
// is retried the same way. Waiting stops early if ctx is cancelled.
//
// On exhaustion the error matches domain.ErrNoData and wraps the last cause.
func (r *Retrier) Fetch(ctx context.Context, q domain.Query) (*domain.Snapshot, error) {
	var lastErr error
	for attempt := range r.maxAttempts {
		r.metrics.FetchAttempts.Inc()

		snap, err := r.fetcher.GetStates(ctx, q)
		if err == nil && snap.Len() == 0 {
			err = domain.ErrEmptyResult
		}
		if err == nil {
			r.metrics.SnapshotSize.Observe(float64(snap.Len()))
			return snap, nil
		}
		lastErr = err

		r.logger.Warn("fetch attempt failed",
			"attempt", attempt+1,
			"max_attempts", r.maxAttempts,
			"kind", domain.Classify(err),
			"error", err,
		)

		if attempt == r.maxAttempts-1 {
			break
		}
		wait := backoff(attempt, r.maxBackoff)
		r.logger.Info("retrying fetch", "wait", wait)
		if !r.sleep(ctx, wait) {
			return nil, fmt.Errorf("%w: fetch cancelled after %d attempts: %w", domain.ErrNoData, attempt+1, ctx.Err())
		}
	}

	r.metrics.FetchExhausted.Inc()
	return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrNoData, r.maxAttempts, lastErr)
}

// backoff returns min(2^attempt seconds, maxBackoff).
func backoff(attempt int, maxBackoff time.Duration) time.Duration {
	if attempt >= 30 {
		return maxBackoff
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := r.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
