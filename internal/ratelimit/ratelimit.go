// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit parses rate-limit response headers and computes retry
// delays from them.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Snapshot is a structured view over rate-limit response headers. Fields are
// nil when the corresponding header was absent or unparsable.
type Snapshot struct {
	// Limit is the request quota (X-RateLimit-Limit).
	Limit *int

	// Remaining is the remaining quota (X-RateLimit-Remaining).
	Remaining *int

	// ResetEpoch is the quota reset time as a Unix timestamp
	// (X-RateLimit-Reset).
	ResetEpoch *float64
}

// FromHeader collects rate-limit header information from response headers.
func FromHeader(h http.Header) Snapshot {
	return Snapshot{
		Limit:      parseInt(h.Get("X-RateLimit-Limit")),
		Remaining:  parseInt(h.Get("X-RateLimit-Remaining")),
		ResetEpoch: parseFloat(h.Get("X-RateLimit-Reset")),
	}
}

// SecondsUntilReset returns the time remaining until the quota resets. The
// second return value is false when the reset time is unknown.
func (s Snapshot) SecondsUntilReset() (time.Duration, bool) {
	return s.secondsUntilReset(time.Now())
}

func (s Snapshot) secondsUntilReset(now time.Time) (time.Duration, bool) {
	if s.ResetEpoch == nil {
		return 0, false
	}
	delta := *s.ResetEpoch - float64(now.Unix())
	if delta < 0 {
		delta = 0
	}
	return time.Duration(delta * float64(time.Second)), true
}

// Metadata converts the snapshot into serializable provenance entries.
// Unknown values are recorded as explicit nils so the metadata shape is
// stable across responses.
func (s Snapshot) Metadata() map[string]any {
	meta := map[string]any{
		"rate_limit_limit":       nil,
		"rate_limit_remaining":   nil,
		"rate_limit_reset_epoch": nil,
	}
	if s.Limit != nil {
		meta["rate_limit_limit"] = *s.Limit
	}
	if s.Remaining != nil {
		meta["rate_limit_remaining"] = *s.Remaining
	}
	if s.ResetEpoch != nil {
		meta["rate_limit_reset_epoch"] = *s.ResetEpoch
	}
	return meta
}

// RetryDelay returns a suggested delay before retrying the request whose
// response carried h. The server's explicit Retry-After header takes priority: a
// numeric value is seconds, an HTTP-date is converted to a non-negative
// delta. Without it the delay is derived from X-RateLimit-Reset. The second
// return value is false when no delay can be computed.
func RetryDelay(h http.Header) (time.Duration, bool) {
	return retryDelay(h, time.Now())
}

func retryDelay(h http.Header, now time.Time) (time.Duration, bool) {
	if retryAfter := h.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), true
		}
		if at, err := http.ParseTime(retryAfter); err == nil {
			delta := at.Sub(now)
			if delta < 0 {
				delta = 0
			}
			return delta, true
		}
		return 0, false
	}

	snapshot := FromHeader(h)
	if delay, ok := snapshot.secondsUntilReset(now); ok && delay > 0 {
		return delay, true
	}
	return 0, false
}

func parseInt(value string) *int {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}
