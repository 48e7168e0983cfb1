// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline runs one question through the fixed answer sequence:
// triage, context ingestion, required-fact gating, cache lookup, provider
// call, cache store, disclaimer.
//
// # Description
//
// Stage order is fixed. Greetings and vague questions short-circuit before
// the session context is touched; a question missing required facts is
// answered with a targeted follow-up and never reaches the cache or the
// provider. The citizen disclaimer is appended after the cache, so cached
// entries stay disclaimer-free and serve both modes' storage format.
//
// Concurrent identical misses are collapsed through singleflight: one
// provider call serves every waiter on the same cache key.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/lawmitra/lawmitra/services/llm"
	"github.com/lawmitra/lawmitra/services/orchestrator/contextmem"
	"github.com/lawmitra/lawmitra/services/orchestrator/datatypes"
	"github.com/lawmitra/lawmitra/services/orchestrator/observability"
	"github.com/lawmitra/lawmitra/services/orchestrator/prompts"
	"github.com/lawmitra/lawmitra/services/orchestrator/triage"
)

// ErrEmptyQuestion is returned when the request carries no question text.
var ErrEmptyQuestion = errors.New("pipeline: empty question")

// AnswerCache is the slice of the response cache the pipeline needs.
type AnswerCache interface {
	Lookup(key string) (string, bool)
	Store(key, answer string)
}

// ContextStore is the slice of the context memory the pipeline needs.
type ContextStore interface {
	Ingest(sessionID, question string) contextmem.Context
	Len() int
}

// Key builds the cache key for a normalized question and mode.
type Key func(question, mode string) string

// Request is one question entering the pipeline, already normalized.
type Request struct {
	SessionID string
	Question  string
	Mode      string
	Timezone  string
	Excerpts  []datatypes.Excerpt
}

// Result is the pipeline's answer plus how it was produced.
type Result struct {
	Answer  string
	Cached  bool
	Outcome observability.Outcome
}

// Pipeline wires the answer stages together.
type Pipeline struct {
	cache    AnswerCache
	contexts ContextStore
	client   llm.LLMClient
	key      Key

	// maxExcerptChars bounds the total excerpt text folded into a prompt.
	maxExcerptChars int

	metrics *observability.PipelineMetrics
	group   singleflight.Group
}

// Options configures optional pipeline behavior.
type Options struct {
	// MaxExcerptChars bounds total attached excerpt text. Zero means 25000.
	MaxExcerptChars int

	// Metrics receives cache and context instrumentation. Nil disables it.
	Metrics *observability.PipelineMetrics
}

// New creates a pipeline over the given collaborators.
func New(cache AnswerCache, contexts ContextStore, client llm.LLMClient, key Key, opts Options) *Pipeline {
	if opts.MaxExcerptChars <= 0 {
		opts.MaxExcerptChars = 25000
	}
	return &Pipeline{
		cache:           cache,
		contexts:        contexts,
		client:          client,
		key:             key,
		maxExcerptChars: opts.MaxExcerptChars,
		metrics:         opts.Metrics,
	}
}

// Answer runs req through the full stage sequence.
//
// Errors from the provider are passed through unmodified so callers can
// distinguish throttling (llm.ErrRateLimited) from other upstream failures.
func (p *Pipeline) Answer(ctx context.Context, req Request) (Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Result{}, ErrEmptyQuestion
	}

	if triage.IsGreeting(question) {
		answer := prompts.GreetingFor(req.Timezone) + "! " + triage.GreetingReply(req.Mode)
		return Result{Answer: answer, Outcome: observability.OutcomeGreeting}, nil
	}
	if triage.LooksVague(question) {
		return Result{Answer: triage.ClarifyReply(req.Mode), Outcome: observability.OutcomeClarify}, nil
	}

	sessionCtx := p.contexts.Ingest(req.SessionID, question)
	if p.metrics != nil {
		p.metrics.SetContextEntries(p.contexts.Len())
	}

	// A drafting question with known gaps gets a targeted follow-up. This is
	// not a cache miss: the reply depends on session state, not the question.
	if missing := contextmem.RequiredFacts(sessionCtx); len(missing) > 0 {
		return Result{
			Answer:  triage.MissingFactsReply(missing),
			Outcome: observability.OutcomeMissingFacts,
		}, nil
	}

	key := p.key(question, req.Mode)
	if answer, ok := p.cache.Lookup(key); ok {
		if p.metrics != nil {
			p.metrics.RecordCacheLookup(true)
		}
		return Result{
			Answer:  p.finalize(answer, req.Mode),
			Cached:  true,
			Outcome: observability.OutcomeCacheHit,
		}, nil
	}
	if p.metrics != nil {
		p.metrics.RecordCacheLookup(false)
	}

	answer, err, shared := p.group.Do(key, func() (interface{}, error) {
		return p.generate(ctx, question, req.Mode, sessionCtx, req.Excerpts)
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		slog.Debug("pipeline: coalesced concurrent miss", "key", key)
	}

	p.cache.Store(key, answer.(string))
	return Result{
		Answer:  p.finalize(answer.(string), req.Mode),
		Outcome: observability.OutcomeGenerated,
	}, nil
}

func (p *Pipeline) generate(ctx context.Context, question, mode string, sessionCtx contextmem.Context, excerpts []datatypes.Excerpt) (string, error) {
	prompt := p.buildPrompt(question, sessionCtx, excerpts)

	answer, err := p.client.Generate(ctx, prompt, llm.GenerationParams{
		System: prompts.SystemFor(mode),
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// buildPrompt folds the session facts and attached excerpts into the
// question. Excerpt text is truncated to the configured total budget.
func (p *Pipeline) buildPrompt(question string, sessionCtx contextmem.Context, excerpts []datatypes.Excerpt) string {
	var b strings.Builder
	b.WriteString(question)

	if summary := contextmem.Summary(sessionCtx); summary != "" {
		b.WriteString("\n\nKnown context: ")
		b.WriteString(summary)
	}

	remaining := p.maxExcerptChars
	for _, e := range excerpts {
		if remaining <= 0 {
			break
		}
		text := e.Text
		if len(text) > remaining {
			text = text[:remaining]
		}
		remaining -= len(text)

		b.WriteString("\n\n--- Attached document")
		if e.Name != "" {
			b.WriteString(": ")
			b.WriteString(e.Name)
		}
		b.WriteString(" ---\n")
		b.WriteString(text)
	}

	return b.String()
}

// finalize appends the citizen disclaimer. Lawyer-mode answers are returned
// as stored.
func (p *Pipeline) finalize(answer, mode string) string {
	if mode == datatypes.ModeLawyer {
		return answer
	}
	if strings.Contains(answer, prompts.Disclaimer) {
		return answer
	}
	return answer + "\n\n" + prompts.Disclaimer
}
