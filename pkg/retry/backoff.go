package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExponentialBackoff returns a deterministic exponential backoff with no
// elapsed-time limit; the caller bounds it by retry count.
func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// Delay is the wait before retry n (0-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(n))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

// Delays lists the waits Do would perform if every attempt failed with a
// retryable error.
func (p Policy) Delays() []time.Duration {
	b := ExponentialBackoff(p.InitialInterval, p.MaxInterval, p.Multiplier)
	delays := make([]time.Duration, 0, p.MaxRetries)
	for i := 0; i < p.MaxRetries; i++ {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// Budget is the total time spent waiting when every retry is used.
func (p Policy) Budget() time.Duration {
	var total time.Duration
	for i := 0; i < p.MaxRetries; i++ {
		total += p.Delay(i)
	}
	return total
}
