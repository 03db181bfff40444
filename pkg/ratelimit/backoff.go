package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// DefaultBackoff is the sleep used when a throttled response carries no
// usable Retry-After header.
const DefaultBackoff = 60 * time.Second

// SleepFunc suspends the caller for the given duration. Injectable so tests
// can record requested sleeps instead of blocking.
type SleepFunc func(time.Duration)

// Backoff decides how long to sleep after a throttled (429/503) response.
// It is the single point where the fetch loop yields control for throttling.
type Backoff struct {
	defaultSleep time.Duration
	sleep        SleepFunc
}

// New creates a Backoff with the standard 60s default and a real sleep.
func New() *Backoff {
	return NewWithSleep(DefaultBackoff, time.Sleep)
}

// NewWithSleep creates a Backoff with a custom default duration and sleep
// function. A non-positive defaultSleep falls back to DefaultBackoff.
func NewWithSleep(defaultSleep time.Duration, sleep SleepFunc) *Backoff {
	if defaultSleep <= 0 {
		defaultSleep = DefaultBackoff
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Backoff{defaultSleep: defaultSleep, sleep: sleep}
}

// Duration returns the sleep mandated by the response headers: the
// Retry-After value in seconds when present and a non-negative integer,
// otherwise the default. Malformed headers silently fall through to the
// default; this never fails.
func (b *Backoff) Duration(headers http.Header) time.Duration {
	if headers != nil {
		if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return b.defaultSleep
}

// Sleep blocks for the duration mandated by the response headers.
func (b *Backoff) Sleep(headers http.Header) {
	b.sleep(b.Duration(headers))
}
