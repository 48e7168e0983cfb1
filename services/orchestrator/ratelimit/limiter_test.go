// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(window time.Duration, max int) (*SlidingWindow, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewSlidingWindow(window, max)
	l.now = clock.Now
	return l, clock
}

func TestAllow_DeniesAtMaxWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(10*time.Second, 4)

	for i := 0; i < 4; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d should be admitted", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4"), "request over the cap must be denied")
}

func TestAllow_WindowSlidesOpenAgain(t *testing.T) {
	l, clock := newTestLimiter(10*time.Second, 2)

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	clock.Advance(11 * time.Second)
	assert.True(t, l.Allow("k"), "admission must succeed once the window elapses")
}

func TestAllow_DenialIsNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(10*time.Second, 1)

	assert.True(t, l.Allow("k"))
	// Repeated denied attempts must not extend the block.
	for i := 0; i < 5; i++ {
		assert.False(t, l.Allow("k"))
		clock.Advance(2 * time.Second)
	}
	// 10s after the single admitted request, the window is open.
	assert.True(t, l.Allow("k"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(10*time.Second, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "a full bucket for one key must not affect another")
}

func TestAllow_ConcurrentSameKeyNeverOveradmits(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, admitted)
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "1.2.3.4", ClientKey("1.2.3.4"))
	assert.Equal(t, "1.2.3.4", ClientKey("1.2.3.4, 5.6.7.8"))
	assert.Equal(t, "1.2.3.4", ClientKey("  1.2.3.4 , 5.6.7.8"))
	assert.Equal(t, AnonymousKey, ClientKey(""))
	assert.Equal(t, AnonymousKey, ClientKey("   "))
}
