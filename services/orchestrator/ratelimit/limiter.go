// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ratelimit implements the per-client admission check that runs
// before any expensive work.
//
// # Description
//
// The limiter keeps a sliding window of request timestamps per client key.
// On each admission check it prunes timestamps older than the window, denies
// without recording when the bucket is full, and otherwise records the
// attempt and allows it.
//
// This is a best-effort, single-process guard. Independent process instances
// do not coordinate, so a multi-instance deployment has a proportionally
// higher effective ceiling. That is an accepted property, not a bug.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The prune-check-append sequence
// is atomic per limiter.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// AnonymousKey is the shared bucket for callers with no forwarded address.
const AnonymousKey = "anon"

// SlidingWindow is a per-key sliding window request limiter.
type SlidingWindow struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	buckets map[string][]time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewSlidingWindow creates a limiter admitting at most max requests per key
// within each window.
func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{
		window:  window,
		max:     max,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed. A denied
// attempt is not recorded, so a client hammering the endpoint does not push
// its own window further out.
func (l *SlidingWindow) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	bucket := l.buckets[key]
	kept := bucket[:0]
	for _, ts := range bucket {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.buckets[key] = kept
		return false
	}

	l.buckets[key] = append(kept, now)
	return true
}

// ClientKey derives the limiter key from the X-Forwarded-For header value:
// the first address token, or AnonymousKey when absent. Callers behind a
// shared proxy therefore share a bucket.
func ClientKey(forwardedFor string) string {
	first := strings.TrimSpace(strings.SplitN(forwardedFor, ",", 2)[0])
	if first == "" {
		return AnonymousKey
	}
	return first
}
