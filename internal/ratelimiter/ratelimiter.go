// Package ratelimiter throttles remote protocol exchanges using a token
// bucket. FTP servers routinely drop or ban clients that hammer the control
// connection, so the facade can be configured to pace its exchanges.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// ExchangeLimiter paces protocol exchanges against a single remote endpoint.
//
// Tokens are replenished at a sustained rate (exchanges per second) and the
// bucket capacity allows short bursts above that rate. A zero rate means
// unthrottled.
//
// All methods are safe for concurrent use.
type ExchangeLimiter struct {
	limiter *rate.Limiter
}

// effectively unlimited; rate.Inf has awkward Wait semantics
const unlimitedRate = 1_000_000_000

// New creates an ExchangeLimiter allowing exchangesPerSecond sustained and
// burst immediate exchanges. A zero exchangesPerSecond disables throttling.
func New(exchangesPerSecond, burst uint) *ExchangeLimiter {
	if exchangesPerSecond == 0 {
		exchangesPerSecond = unlimitedRate
		burst = unlimitedRate
	}
	if burst == 0 {
		burst = exchangesPerSecond
	}

	return &ExchangeLimiter{
		limiter: rate.NewLimiter(rate.Limit(exchangesPerSecond), int(burst)),
	}
}

// Allow reports whether an exchange may proceed immediately, consuming a
// token if so. Use when the caller prefers rejection over waiting.
func (l *ExchangeLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
//
// Returns nil once a token is acquired, or the context error if the wait
// was abandoned.
func (l *ExchangeLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Tokens returns the current bucket fill. Monitoring/debugging only; the
// value may be stale by the time it is observed.
func (l *ExchangeLimiter) Tokens() float64 {
	return l.limiter.Tokens()
}
