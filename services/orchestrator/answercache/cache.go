// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package answercache memoizes computed answers for a bounded time so that
// repeated identical questions do not trigger repeated provider calls.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Lookup-then-store for the same
// key is atomic per cache; entries for different keys never block one
// another beyond the shared map lock.
package answercache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	answer  string
	expires time.Time
}

// Cache is a TTL-bounded answer store keyed by normalized (question, mode).
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry

	// now is injectable for tests.
	now func() time.Time
}

// New creates a cache whose entries expire ttl after being stored.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Key normalizes a question and mode into a cache key: lowercased,
// whitespace collapsed, mode appended. Two questions differing only in
// casing or spacing share an entry; the same question in a different mode
// does not.
func Key(question, mode string) string {
	q := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	return q + "|" + mode
}

// Lookup returns the stored answer for key while it is still fresh. Expired
// entries are deleted lazily here, on the next lookup that touches them.
func (c *Cache) Lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.answer, true
}

// Store saves answer under key, overwriting any previous entry and
// restarting its TTL.
func (c *Cache) Store(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		answer:  answer,
		expires: c.now().Add(c.ttl),
	}
}

// Len reports the number of entries currently held, including any that have
// expired but not yet been looked up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
