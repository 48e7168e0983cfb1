// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics creates a PipelineMetrics instance on a private registry so
// tests do not collide with the default registry or each other.
func newTestMetrics(t *testing.T) *PipelineMetrics {
	t.Helper()

	reg := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "requests_total",
			Help:      "Total answer requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"result"},
	)

	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "rate_limited_total",
			Help:      "Requests denied by the admission controller",
		},
	)

	providerRetriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "provider_retries_total",
			Help:      "LLM provider calls retried after throttling",
		},
		[]string{"provider"},
	)

	answerDurationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "answer_duration_seconds",
			Help:      "Wall time to produce an answer",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode", "outcome"},
	)

	contextEntries := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "context_entries",
			Help:      "Live session contexts held in memory",
		},
	)

	reg.MustRegister(
		requestsTotal,
		cacheLookupsTotal,
		rateLimitedTotal,
		providerRetriesTotal,
		answerDurationSeconds,
		contextEntries,
	)

	return &PipelineMetrics{
		RequestsTotal:         requestsTotal,
		CacheLookupsTotal:     cacheLookupsTotal,
		RateLimitedTotal:      rateLimitedTotal,
		ProviderRetriesTotal:  providerRetriesTotal,
		AnswerDurationSeconds: answerDurationSeconds,
		ContextEntries:        contextEntries,
	}
}

// InitMetrics registers on the default registry via promauto, so it may run
// only once per test binary.
var initMetricsTestOnce bool

func TestInitMetrics(t *testing.T) {
	if initMetricsTestOnce {
		t.Skip("InitMetrics can only be called once per test run (promauto restriction)")
	}
	initMetricsTestOnce = true

	result := InitMetrics()
	if result == nil {
		t.Fatal("InitMetrics() returned nil")
	}
	if DefaultMetrics != result {
		t.Error("DefaultMetrics should equal the returned value")
	}
	if result.RequestsTotal == nil || result.CacheLookupsTotal == nil ||
		result.RateLimitedTotal == nil || result.ProviderRetriesTotal == nil ||
		result.AnswerDurationSeconds == nil || result.ContextEntries == nil {
		t.Fatal("InitMetrics() left a metric nil")
	}

	// Verify the metrics can be used.
	result.RecordRequest("citizen", OutcomeGenerated, 0.8)
	result.RecordCacheLookup(false)
	result.RecordRateLimited()
	result.RecordProviderRetry("openai")
	result.SetContextEntries(3)
}

func TestRecordRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRequest("citizen", OutcomeGreeting, 0.001)
	m.RecordRequest("citizen", OutcomeGenerated, 1.2)
	m.RecordRequest("citizen", OutcomeGenerated, 0.9)
	m.RecordRequest("lawyer", OutcomeCacheHit, 0.002)

	generated := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("citizen", "generated"))
	if generated != 2 {
		t.Errorf("RequestsTotal[citizen,generated] = %f, want 2", generated)
	}
	hit := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("lawyer", "cache_hit"))
	if hit != 1 {
		t.Errorf("RequestsTotal[lawyer,cache_hit] = %f, want 1", hit)
	}
	if count := testutil.CollectAndCount(m.AnswerDurationSeconds); count == 0 {
		t.Error("expected duration observations to be collected")
	}
}

func TestRecordCacheLookup(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)

	hits := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit"))
	if hits != 2 {
		t.Errorf("CacheLookupsTotal[hit] = %f, want 2", hits)
	}
	misses := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss"))
	if misses != 1 {
		t.Errorf("CacheLookupsTotal[miss] = %f, want 1", misses)
	}
}

func TestRecordRateLimited(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRateLimited()
	m.RecordRateLimited()

	val := testutil.ToFloat64(m.RateLimitedTotal)
	if val != 2 {
		t.Errorf("RateLimitedTotal = %f, want 2", val)
	}
}

func TestRecordProviderRetry(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordProviderRetry("openai")
	m.RecordProviderRetry("openai")
	m.RecordProviderRetry("gemini")

	openai := testutil.ToFloat64(m.ProviderRetriesTotal.WithLabelValues("openai"))
	if openai != 2 {
		t.Errorf("ProviderRetriesTotal[openai] = %f, want 2", openai)
	}
}

func TestSetContextEntries(t *testing.T) {
	m := newTestMetrics(t)

	m.SetContextEntries(42)
	if val := testutil.ToFloat64(m.ContextEntries); val != 42 {
		t.Errorf("ContextEntries = %f, want 42", val)
	}
	m.SetContextEntries(0)
	if val := testutil.ToFloat64(m.ContextEntries); val != 0 {
		t.Errorf("ContextEntries = %f, want 0", val)
	}
}

func TestConcurrentSafety(t *testing.T) {
	m := newTestMetrics(t)

	done := make(chan bool, 60)
	for i := 0; i < 20; i++ {
		go func() {
			m.RecordRequest("citizen", OutcomeGenerated, 0.5)
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		go func() {
			m.RecordCacheLookup(true)
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		go func() {
			m.RecordRateLimited()
			done <- true
		}()
	}
	for i := 0; i < 60; i++ {
		<-done
	}

	requests := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("citizen", "generated"))
	if requests != 20 {
		t.Errorf("RequestsTotal[citizen,generated] = %f, want 20", requests)
	}
	denied := testutil.ToFloat64(m.RateLimitedTotal)
	if denied != 20 {
		t.Errorf("RateLimitedTotal = %f, want 20", denied)
	}
}
