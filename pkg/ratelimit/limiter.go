// Package ratelimit bounds how many sub-requests of a batch are in flight at
// once. Limits are either local to the process or shared through Redis by
// every jamfctl process talking to the same server.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

// Prometheus metrics for dispatch limiting.
var (
	limiterWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jamf_limiter_waits_total",
		Help: "Acquisitions that had to wait for a free slot, by backend",
	}, []string{"backend"})

	limiterWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jamf_limiter_wait_seconds",
		Help:    "Time spent waiting for a dispatch slot, by backend",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"backend"})
)

// Limiter gates dispatch of sub-requests.
type Limiter interface {
	// Acquire blocks until a slot is free or ctx is done.
	Acquire(ctx context.Context) error

	// Release frees a slot obtained by Acquire.
	Release(ctx context.Context)
}

// Local is an in-process limiter.
type Local struct {
	sem   *semaphore.Weighted
	limit int64
}

// NewLocal creates a limiter allowing n concurrent holders.
func NewLocal(n int) (*Local, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be > 0 (got %d)", n)
	}
	return &Local{sem: semaphore.NewWeighted(int64(n)), limit: int64(n)}, nil
}

// Acquire implements Limiter.
func (l *Local) Acquire(ctx context.Context) error {
	if l.sem.TryAcquire(1) {
		return nil
	}

	limiterWaitsTotal.WithLabelValues("local").Inc()
	start := time.Now()
	err := l.sem.Acquire(ctx, 1)
	limiterWaitSeconds.WithLabelValues("local").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("acquire dispatch slot: %w", err)
	}
	return nil
}

// Release implements Limiter.
func (l *Local) Release(context.Context) {
	l.sem.Release(1)
}

// Limit returns the configured number of slots.
func (l *Local) Limit() int {
	return int(l.limit)
}
