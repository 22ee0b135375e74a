// Package pacer spaces out consecutive uploads to the scripting endpoint,
// which throttles bursts of requests.
package pacer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"docdesk/internal/config"
	"docdesk/internal/desk"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FixedInterval waits the full interval before every call except the first,
// however long the previous upload took.
type FixedInterval struct {
	mu       sync.Mutex
	interval time.Duration
	sleep    Sleeper
	started  bool
}

// NewFixedInterval creates a FixedInterval pacer.
func NewFixedInterval(interval time.Duration, sleep Sleeper) *FixedInterval {
	return &FixedInterval{interval: interval, sleep: sleep}
}

func (p *FixedInterval) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.started = true
		return ctx.Err()
	}
	return p.sleep(ctx, p.interval)
}

// TokenBucket admits bursts of up to burst calls, refilled at ratePerSecond.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a TokenBucket pacer.
func NewTokenBucket(ratePerSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (p *TokenBucket) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// None never waits.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }

// NewPacerFromConfig creates a Pacer based on the upload pacing setting.
func NewPacerFromConfig(cfg config.UploadConfig) (desk.Pacer, error) {
	switch cfg.Pacing {
	case "", "interval":
		interval := time.Duration(cfg.IntervalMillis) * time.Millisecond
		if interval <= 0 {
			interval = time.Second
		}
		return NewFixedInterval(interval, Sleep), nil
	case "token_bucket":
		if cfg.RatePerSecond <= 0 {
			return nil, fmt.Errorf("rate_per_second must be positive for token_bucket pacing")
		}
		return NewTokenBucket(cfg.RatePerSecond, cfg.Burst), nil
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown upload pacing: %s", cfg.Pacing)
	}
}

var (
	_ desk.Pacer = (*FixedInterval)(nil)
	_ desk.Pacer = (*TokenBucket)(nil)
	_ desk.Pacer = None{}
)
