package calc

import (
	"math"
	"time"
)

const maxBackoffShift = 30

// Progress calculates the percentage for a given pair of numbers.
func Progress(done, total int) int {
	if total > 0 {
		return int(math.Round(float64(done) / float64(total) * 100))
	}
	return 0
}

// Backoff returns the delay before the next retry after a failed attempt:
// base * 2^attempt, with attempt indexed from zero.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}

	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}

	return base << uint(attempt)
}
