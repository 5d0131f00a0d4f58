// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func headerOf(headers map[string]string) http.Header {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return h
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		wantLimit     *int
		wantRemaining *int
		wantReset     *float64
	}{
		{
			name: "all headers",
			headers: map[string]string{
				"X-RateLimit-Limit":     "10000",
				"X-RateLimit-Remaining": "9987",
				"X-RateLimit-Reset":     "1700000000",
			},
			wantLimit:     intPtr(10000),
			wantRemaining: intPtr(9987),
			wantReset:     floatPtr(1700000000),
		},
		{
			name:    "no headers",
			headers: map[string]string{},
		},
		{
			name: "malformed values ignored",
			headers: map[string]string{
				"X-RateLimit-Limit":     "lots",
				"X-RateLimit-Remaining": "",
				"X-RateLimit-Reset":     "soon",
			},
		},
		{
			name: "partial headers",
			headers: map[string]string{
				"X-RateLimit-Remaining": "3",
			},
			wantRemaining: intPtr(3),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHeader(headerOf(tt.headers))
			checkIntPtr(t, "Limit", got.Limit, tt.wantLimit)
			checkIntPtr(t, "Remaining", got.Remaining, tt.wantRemaining)
			checkFloatPtr(t, "ResetEpoch", got.ResetEpoch, tt.wantReset)
		})
	}
}

func TestSecondsUntilReset(t *testing.T) {
	now := time.Unix(1700000000, 0)

	reset := float64(1700000090)
	s := Snapshot{ResetEpoch: &reset}
	delay, ok := s.secondsUntilReset(now)
	if !ok {
		t.Fatal("secondsUntilReset ok = false, want true")
	}
	if delay != 90*time.Second {
		t.Errorf("secondsUntilReset = %v, want 90s", delay)
	}

	past := float64(1699999000)
	s = Snapshot{ResetEpoch: &past}
	delay, ok = s.secondsUntilReset(now)
	if !ok || delay != 0 {
		t.Errorf("past reset: delay = %v ok = %v, want 0 true", delay, ok)
	}

	s = Snapshot{}
	if _, ok := s.secondsUntilReset(now); ok {
		t.Error("unknown reset: ok = true, want false")
	}
}

func TestRetryDelay(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	tests := []struct {
		name     string
		headers  map[string]string
		want     time.Duration
		wantOK   bool
	}{
		{
			name:    "retry-after seconds",
			headers: map[string]string{"Retry-After": "30"},
			want:    30 * time.Second,
			wantOK:  true,
		},
		{
			name:    "retry-after fractional seconds",
			headers: map[string]string{"Retry-After": "1.5"},
			want:    1500 * time.Millisecond,
			wantOK:  true,
		},
		{
			name: "retry-after http date",
			headers: map[string]string{
				"Retry-After": now.Add(2 * time.Minute).Format(http.TimeFormat),
			},
			want:   2 * time.Minute,
			wantOK: true,
		},
		{
			name: "retry-after http date in the past clamps to zero",
			headers: map[string]string{
				"Retry-After": now.Add(-time.Hour).Format(http.TimeFormat),
			},
			want:   0,
			wantOK: true,
		},
		{
			name:    "retry-after garbage",
			headers: map[string]string{"Retry-After": "whenever"},
			wantOK:  false,
		},
		{
			name:    "reset header fallback",
			headers: map[string]string{"X-RateLimit-Reset": "1700000060"},
			want:    60 * time.Second,
			wantOK:  true,
		},
		{
			name:    "expired reset gives no delay",
			headers: map[string]string{"X-RateLimit-Reset": "1699990000"},
			wantOK:  false,
		},
		{
			name:    "no headers",
			headers: map[string]string{},
			wantOK:  false,
		},
		{
			name: "retry-after wins over reset header",
			headers: map[string]string{
				"Retry-After":       "5",
				"X-RateLimit-Reset": "1700009999",
			},
			want:   5 * time.Second,
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := retryDelay(headerOf(tt.headers), now)
			if ok != tt.wantOK {
				t.Fatalf("retryDelay ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("retryDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	limit, remaining, reset := 10, 9, float64(1700000000)
	s := Snapshot{Limit: &limit, Remaining: &remaining, ResetEpoch: &reset}
	meta := s.Metadata()
	if meta["rate_limit_limit"] != 10 || meta["rate_limit_remaining"] != 9 {
		t.Errorf("Metadata() = %v", meta)
	}
	if meta["rate_limit_reset_epoch"] != reset {
		t.Errorf("Metadata() reset = %v, want %v", meta["rate_limit_reset_epoch"], reset)
	}

	empty := Snapshot{}.Metadata()
	for _, key := range []string{"rate_limit_limit", "rate_limit_remaining", "rate_limit_reset_epoch"} {
		if v, present := empty[key]; !present || v != nil {
			t.Errorf("empty Metadata()[%s] = %v, want explicit nil", key, v)
		}
	}
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func checkIntPtr(t *testing.T, field string, got, want *int) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, got, want)
	case *got != *want:
		t.Errorf("%s = %d, want %d", field, *got, *want)
	}
}

func checkFloatPtr(t *testing.T, field string, got, want *float64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, got, want)
	case *got != *want:
		t.Errorf("%s = %g, want %g", field, *got, *want)
	}
}
