// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package answercache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestKey_NormalizesQuestionAndSeparatesModes(t *testing.T) {
	assert.Equal(t, Key("How to file an RTI?", "citizen"), Key("  how  to FILE an rti? ", "citizen"))
	assert.NotEqual(t, Key("How to file an RTI?", "citizen"), Key("How to file an RTI?", "lawyer"))
}

func TestLookup_ReturnsStoredAnswerVerbatimWithinTTL(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	key := Key("what is article 21", "citizen")

	c.Store(key, "Article 21 protects life and personal liberty.")

	got, ok := c.Lookup(key)
	assert.True(t, ok)
	assert.Equal(t, "Article 21 protects life and personal liberty.", got)
}

func TestLookup_ExpiredEntryIsDeleted(t *testing.T) {
	c, now := newTestCache(time.Minute)
	key := Key("bail basics", "citizen")

	c.Store(key, "cached")
	*now = now.Add(2 * time.Minute)

	_, ok := c.Lookup(key)
	assert.False(t, ok, "entry past its TTL must miss")
	assert.Equal(t, 0, c.Len(), "expired entry must be deleted on lookup")
}

func TestStore_OverwriteRestartsTTL(t *testing.T) {
	c, now := newTestCache(time.Minute)
	key := Key("q", "lawyer")

	c.Store(key, "first")
	*now = now.Add(45 * time.Second)
	c.Store(key, "second")
	*now = now.Add(30 * time.Second)

	got, ok := c.Lookup(key)
	assert.True(t, ok, "recomputed entry must live a full TTL from its store time")
	assert.Equal(t, "second", got)
}

func TestLookup_MissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	_, ok := c.Lookup(Key("never stored", "citizen"))
	assert.False(t, ok)
}
