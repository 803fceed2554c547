package queue

import (
	"math/rand/v2"
	"time"
)

// Policy configures retries and limits for a job kind.
type Policy struct {
	Queue     string
	Tries     int
	Backoff   Backoff
	Timeout   time.Duration
	UniqueFor time.Duration
}

// Backoff returns the delay before the attempt following attempt.
type Backoff interface {
	Delay(attempt int) time.Duration
}

type fixedBackoff time.Duration

// Fixed waits the same delay between all attempts.
func Fixed(d time.Duration) Backoff {
	return fixedBackoff(d)
}

func (b fixedBackoff) Delay(int) time.Duration {
	return time.Duration(b)
}

type exponentialBackoff struct {
	base time.Duration
	max  time.Duration
}

// Exponential doubles base after every attempt up to max, with +-12.5% jitter.
func Exponential(base, max time.Duration) Backoff {
	return exponentialBackoff{base: base, max: max}
}

func (b exponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.base
	for i := 1; i < attempt && (b.max <= 0 || d < b.max); i++ {
		d *= 2
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(d)/4+1)) - d/8
	return d + jitter
}
