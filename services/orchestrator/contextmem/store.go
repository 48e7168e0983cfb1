// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package contextmem keeps per-session structured facts between questions:
// the caller's intent, location and property kind, the last raw question,
// and a topic classification used only for change detection.
//
// # Description
//
// The store is bounded in two ways: entries older than MaxAge are purged,
// and when the count still exceeds MaxEntries the oldest-updated entries are
// evicted first. Purge runs before every update, so the bounds hold without
// a background sweeper.
//
// When a new question is classified under a different topic AND reads
// nothing like the previous question (token-set similarity below the
// threshold), the caller has switched subjects: structured facts are cleared
// while the session record itself is retained. A similar question keeps its
// facts even if the keyword classifier nominally changed its mind — a
// one-word clarification must not wipe a half-collected rent agreement.
//
// # Thread Safety
//
// All methods are safe for concurrent use; read-modify-write on a session is
// atomic per store.
package contextmem

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Context is the structured memory for one session.
type Context struct {
	Intent   Intent   `json:"intent,omitempty"`
	Topic    Topic    `json:"topic,omitempty"`
	City     string   `json:"city,omitempty"`
	State    string   `json:"state,omitempty"`
	Property string   `json:"property,omitempty"`
	Extras   []string `json:"extras,omitempty"`
	LastQ    string   `json:"last_q,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Facts is a partial fact set produced by extraction. Empty fields mean
// "not mentioned" and leave the stored value untouched on merge.
type Facts struct {
	Intent   Intent
	City     string
	State    string
	Property string
}

// Config bounds the store and tunes topic-change detection.
type Config struct {
	MaxEntries int
	MaxAge     time.Duration

	// SimilarityThreshold is the Jaccard similarity below which a topic
	// change is treated as a genuine subject switch.
	SimilarityThreshold float64
}

// Store holds session contexts in memory for a single process.
type Store struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*Context

	// now is injectable for tests.
	now func() time.Time
}

// NewStore creates an empty store with the given bounds.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:     cfg,
		entries: make(map[string]*Context),
		now:     time.Now,
	}
}

// Get returns a copy of the session's context, or a zero Context when the
// session is unknown.
func (s *Store) Get(sessionID string) Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.entries[sessionID]; ok {
		return *c
	}
	return Context{}
}

// Ingest runs the full merge for one inbound question: purge, topic-change
// detection, fact extraction, and merge. It returns the context as it stands
// after the question has been absorbed. The whole sequence holds the store
// lock so concurrent questions on the same session cannot lose a merge.
func (s *Store) Ingest(sessionID, question string) Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()

	prev, ok := s.entries[sessionID]
	if !ok {
		prev = &Context{}
		s.entries[sessionID] = prev
	}

	topic := DetectTopic(question)
	if ok && prev.Topic != "" && topic != prev.Topic {
		sim := Jaccard(question, prev.LastQ)
		if sim < s.cfg.SimilarityThreshold {
			slog.Debug("contextmem: subject switch, clearing facts",
				"session", sessionID,
				"old_topic", prev.Topic,
				"new_topic", topic,
				"similarity", sim,
			)
			prev.Intent = ""
			prev.City = ""
			prev.State = ""
			prev.Property = ""
			prev.Extras = nil
		}
	}

	facts := ExtractFacts(question)
	if facts.Intent != "" {
		prev.Intent = facts.Intent
	}
	if facts.City != "" {
		prev.City = facts.City
	}
	if facts.State != "" {
		prev.State = facts.State
	}
	if facts.Property != "" {
		prev.Property = facts.Property
	}
	prev.Topic = topic
	prev.LastQ = question
	prev.UpdatedAt = s.now()

	return *prev
}

// Update merges a partial fact set into the session without running topic
// detection. Used by callers that already know what changed.
func (s *Store) Update(sessionID string, facts Facts) Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()

	c, ok := s.entries[sessionID]
	if !ok {
		c = &Context{}
		s.entries[sessionID] = c
	}
	if facts.Intent != "" {
		c.Intent = facts.Intent
	}
	if facts.City != "" {
		c.City = facts.City
	}
	if facts.State != "" {
		c.State = facts.State
	}
	if facts.Property != "" {
		c.Property = facts.Property
	}
	c.UpdatedAt = s.now()

	return *c
}

// Clear forgets everything about a session.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

// Purge enforces the store bounds immediately. After it returns, the entry
// count is at most MaxEntries and every surviving entry was updated within
// MaxAge.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
}

// Len reports the number of sessions currently stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) purgeLocked() {
	now := s.now()

	if s.cfg.MaxAge > 0 {
		cutoff := now.Add(-s.cfg.MaxAge)
		for id, c := range s.entries {
			if c.UpdatedAt.Before(cutoff) {
				delete(s.entries, id)
			}
		}
	}

	if s.cfg.MaxEntries <= 0 || len(s.entries) <= s.cfg.MaxEntries {
		return
	}

	type aged struct {
		id string
		at time.Time
	}
	byAge := make([]aged, 0, len(s.entries))
	for id, c := range s.entries {
		byAge = append(byAge, aged{id: id, at: c.UpdatedAt})
	}
	sort.Slice(byAge, func(i, j int) bool { return byAge[i].at.Before(byAge[j].at) })

	evict := len(s.entries) - s.cfg.MaxEntries
	for _, a := range byAge[:evict] {
		delete(s.entries, a.id)
	}
	slog.Debug("contextmem: evicted oldest sessions", "count", evict)
}
