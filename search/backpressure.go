package search

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Stats is a snapshot of the progress of one search.
type Stats struct {
	Scheduled   int64 // Documents submitted to the worker pool
	Scanned     int64 // Documents whose scan finished
	Occurrences int64 // Occurrences delivered to handlers
}

// Policy decides whether the scheduler may submit another document.
// Checkpoint is called before every submission and may block; in-flight
// documents keep running meanwhile. Returning an error aborts the search.
type Policy interface {
	Checkpoint(ctx context.Context, stats Stats) error
}

type noBackpressure struct{}

func (noBackpressure) Checkpoint(context.Context, Stats) error { return nil }

// NoBackpressure returns a policy that never pauses.
func NoBackpressure() Policy {
	return noBackpressure{}
}

// ThresholdPolicy pauses scheduling once Limit occurrences were delivered
// since the last Resume. Scheduling continues after Resume.
type ThresholdPolicy struct {
	limit int64

	mu       sync.Mutex
	base     int64
	last     int64
	paused   bool
	resumeCh chan struct{}
	onPause  func(Stats)
}

// NewThresholdPolicy creates a policy pausing after limit occurrences.
// onPause, if not nil, is called once each time the policy pauses.
func NewThresholdPolicy(limit int64, onPause func(Stats)) *ThresholdPolicy {
	return &ThresholdPolicy{limit: max(limit, 1), onPause: onPause}
}

func (p *ThresholdPolicy) Checkpoint(ctx context.Context, stats Stats) error {
	p.mu.Lock()
	p.last = stats.Occurrences
	if !p.paused && stats.Occurrences-p.base >= p.limit {
		p.paused = true
		p.resumeCh = make(chan struct{})
		if p.onPause != nil {
			p.onPause(stats)
		}
	}
	if !p.paused {
		p.mu.Unlock()
		return nil
	}
	ch := p.resumeCh
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether scheduling is paused.
func (p *ThresholdPolicy) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Resume lets scheduling continue and restarts the count.
func (p *ThresholdPolicy) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.last
	if p.paused {
		p.paused = false
		close(p.resumeCh)
	}
}

// RateLimitPolicy bounds the rate at which documents are scheduled.
type RateLimitPolicy struct {
	limiter *rate.Limiter
}

// NewRateLimitPolicy allows documentsPerSecond with the given burst.
func NewRateLimitPolicy(documentsPerSecond float64, burst int) *RateLimitPolicy {
	return &RateLimitPolicy{limiter: rate.NewLimiter(rate.Limit(documentsPerSecond), max(burst, 1))}
}

func (p *RateLimitPolicy) Checkpoint(ctx context.Context, _ Stats) error {
	return p.limiter.Wait(ctx)
}
