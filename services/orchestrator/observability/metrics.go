// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover the answer pipeline end to end:
//   - Request counters by outcome (greeting, clarify, cache_hit, generated...)
//   - Cache lookup counters (hit/miss)
//   - Admission denials from the rate limiter
//   - Provider retry counters
//   - Answer latency histograms
//
// Exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "lawmitra"

const pipelineSubsystem = "pipeline"

// Outcome labels a completed answer request for metrics.
type Outcome string

const (
	OutcomeGreeting     Outcome = "greeting"
	OutcomeClarify      Outcome = "clarify"
	OutcomeMissingFacts Outcome = "missing_facts"
	OutcomeCacheHit     Outcome = "cache_hit"
	OutcomeGenerated    Outcome = "generated"
	OutcomeError        Outcome = "error"
)

// PipelineMetrics holds all Prometheus metrics for the answer pipeline.
//
// Initialize once at startup via InitMetrics; duplicate registration panics.
type PipelineMetrics struct {
	// RequestsTotal counts answer requests by mode and outcome.
	// Labels: mode (citizen, lawyer), outcome (greeting, clarify, ...).
	RequestsTotal *prometheus.CounterVec

	// CacheLookupsTotal counts response cache lookups.
	// Labels: result (hit, miss).
	CacheLookupsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests denied by the admission controller.
	RateLimitedTotal prometheus.Counter

	// ProviderRetriesTotal counts retried provider calls.
	// Labels: provider (openai, gemini, ollama).
	ProviderRetriesTotal *prometheus.CounterVec

	// AnswerDurationSeconds measures wall time for an answer request.
	// Labels: mode, outcome.
	AnswerDurationSeconds *prometheus.HistogramVec

	// ContextEntries tracks the number of live session contexts.
	ContextEntries prometheus.Gauge
}

// DefaultMetrics is the singleton instance set by InitMetrics.
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics on the default
// Prometheus registry.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total answer requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),

		RateLimitedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "rate_limited_total",
				Help:      "Requests denied by the admission controller",
			},
		),

		ProviderRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "provider_retries_total",
				Help:      "LLM provider calls retried after throttling",
			},
			[]string{"provider"},
		),

		AnswerDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "answer_duration_seconds",
				Help:      "Wall time to produce an answer",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"mode", "outcome"},
		),

		ContextEntries: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "context_entries",
				Help:      "Live session contexts held in memory",
			},
		),
	}

	return DefaultMetrics
}

// RecordRequest records a completed answer request and its duration.
func (m *PipelineMetrics) RecordRequest(mode string, outcome Outcome, seconds float64) {
	m.RequestsTotal.WithLabelValues(mode, string(outcome)).Inc()
	m.AnswerDurationSeconds.WithLabelValues(mode, string(outcome)).Observe(seconds)
}

// RecordCacheLookup records a response cache hit or miss.
func (m *PipelineMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited records an admission denial.
func (m *PipelineMetrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// RecordProviderRetry records one retried provider call.
func (m *PipelineMetrics) RecordProviderRetry(provider string) {
	m.ProviderRetriesTotal.WithLabelValues(provider).Inc()
}

// SetContextEntries updates the live context gauge.
func (m *PipelineMetrics) SetContextEntries(n int) {
	m.ContextEntries.Set(float64(n))
}
