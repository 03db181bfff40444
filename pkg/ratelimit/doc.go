// Package ratelimit handles server-directed throttling for the X API.
//
// Unlike a client-side budget (token bucket or sliding window), the X v2
// endpoints tell the client when to come back via the Retry-After header on
// 429 and 503 responses. Backoff turns that signal into a blocking sleep,
// falling back to a fixed 60 second pause when the header is missing or
// malformed.
//
// Usage:
//
//	b := ratelimit.New()
//	resp, _ := client.Do(req)
//	if resp.StatusCode == http.StatusTooManyRequests {
//	    b.Sleep(resp.Header) // blocks, then retry the same request
//	}
//
// The sleep function is injectable for tests.
package ratelimit
