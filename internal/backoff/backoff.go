// Package backoff computes retry delays. It centralizes the capped
// exponential calculation so the retry handler and any future policies share
// one overflow-safe implementation.
package backoff

import (
	"math/rand"
	"time"
)

// Delay returns the backoff before retry number attempt (0-based exponent):
// min(base * multiplier^attempt, max), plus up to jitter*delay of randomness.
// The max cap is authoritative; overflow for large attempts clamps to max.
func Delay(attempt int, base, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Beyond 30 doublings any practical base has long since hit the cap.
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(base) * Pow(multiplier, attempt))
	if delay < 0 || delay > max {
		delay = max
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		amount := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+amount > max {
			delay = max
		} else {
			delay += amount
		}
	}
	return delay
}

// Pow is an integer-exponent power avoiding a math import on the hot path.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}
