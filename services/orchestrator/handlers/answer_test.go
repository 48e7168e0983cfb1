// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawmitra/lawmitra/services/llm"
	"github.com/lawmitra/lawmitra/services/orchestrator/answercache"
	"github.com/lawmitra/lawmitra/services/orchestrator/contextmem"
	"github.com/lawmitra/lawmitra/services/orchestrator/datatypes"
	"github.com/lawmitra/lawmitra/services/orchestrator/pipeline"
)

// stubLLM returns a fixed answer or error and counts calls.
type stubLLM struct {
	calls  atomic.Int64
	answer string
	err    error
}

func (s *stubLLM) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func newAnswerRouter(client llm.LLMClient) *gin.Engine {
	contexts := contextmem.NewStore(contextmem.Config{
		MaxEntries:          100,
		MaxAge:              time.Hour,
		SimilarityThreshold: 0.25,
	})
	p := pipeline.New(answercache.New(time.Minute), contexts, client, answercache.Key, pipeline.Options{})

	router := gin.New()
	router.POST("/v1/answer", HandleAnswer(p, nil))
	return router
}

func postAnswer(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeAnswer(t *testing.T, w *httptest.ResponseRecorder) datatypes.AnswerResponse {
	t.Helper()
	var resp datatypes.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleAnswer_InvalidBody(t *testing.T) {
	router := newAnswerRouter(&stubLLM{})
	w := postAnswer(router, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAnswer_EmptyQuestion(t *testing.T) {
	router := newAnswerRouter(&stubLLM{})
	w := postAnswer(router, `{"question": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no question provided")
}

func TestHandleAnswer_InvalidMode(t *testing.T) {
	router := newAnswerRouter(&stubLLM{})
	w := postAnswer(router, `{"question": "what is article 21", "mode": "paralegal"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAnswer_Greeting(t *testing.T) {
	client := &stubLLM{answer: "unused"}
	router := newAnswerRouter(client)

	w := postAnswer(router, `{"question": "hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeAnswer(t, w)
	assert.Equal(t, "greeting", resp.Diagnostic)
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.SessionID, "server assigns a session when none sent")
	assert.Zero(t, client.calls.Load())
}

func TestHandleAnswer_VagueQuestion(t *testing.T) {
	client := &stubLLM{answer: "unused"}
	router := newAnswerRouter(client)

	w := postAnswer(router, `{"question": "I need legal advice"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeAnswer(t, w)
	assert.Equal(t, "clarify", resp.Diagnostic)
	assert.Zero(t, client.calls.Load())
}

func TestHandleAnswer_LegacyQAlias(t *testing.T) {
	client := &stubLLM{answer: "unused"}
	router := newAnswerRouter(client)

	w := postAnswer(router, `{"q": "hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "greeting", decodeAnswer(t, w).Diagnostic)
}

func TestHandleAnswer_DraftingConversation(t *testing.T) {
	client := &stubLLM{answer: "Draft steps follow."}
	router := newAnswerRouter(client)

	// Turn 1: drafting intent without location or property kind.
	w := postAnswer(router, `{"question": "how to draft a rent agreement", "sessionId": "s-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeAnswer(t, w)
	assert.Equal(t, "missing_facts", resp.Diagnostic)
	assert.Contains(t, resp.Answer, "city or state")
	assert.Zero(t, client.calls.Load())

	// Turn 2: facts supplied, answer is generated.
	w = postAnswer(router, `{"question": "rent agreement for my apartment in delhi", "sessionId": "s-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeAnswer(t, w)
	assert.Equal(t, "generated", resp.Diagnostic)
	assert.False(t, resp.Cached)
	assert.Contains(t, resp.Answer, "Draft steps follow.")
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestHandleAnswer_SessionFromClientAddress(t *testing.T) {
	client := &stubLLM{answer: "Draft steps follow."}
	router := newAnswerRouter(client)

	post := func(body string) datatypes.AnswerResponse {
		req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		return decodeAnswer(t, w)
	}

	// Turn 1 sends no sessionId; the facts land under the address key.
	resp := post(`{"question": "rent agreement for my apartment in delhi"}`)
	assert.Equal(t, "generated", resp.Diagnostic)
	assert.Equal(t, "203.0.113.7", resp.SessionID)

	// Turn 2 also sends no sessionId. The stored location and property
	// facts must carry over instead of being asked for again.
	resp = post(`{"question": "make the rent agreement term eleven months"}`)
	assert.Equal(t, "generated", resp.Diagnostic)
	assert.Equal(t, "203.0.113.7", resp.SessionID)
	assert.Equal(t, int64(2), client.calls.Load())
}

func TestHandleAnswer_CachedRepeat(t *testing.T) {
	client := &stubLLM{answer: "Stamp duty varies by state."}
	router := newAnswerRouter(client)

	first := postAnswer(router, `{"question": "what is the stamp duty on gift deeds", "sessionId": "a"}`)
	require.Equal(t, http.StatusOK, first.Code)
	assert.False(t, decodeAnswer(t, first).Cached)

	second := postAnswer(router, `{"question": "What is the stamp duty on GIFT deeds", "sessionId": "b"}`)
	require.Equal(t, http.StatusOK, second.Code)
	resp := decodeAnswer(t, second)
	assert.True(t, resp.Cached)
	assert.Equal(t, "cache_hit", resp.Diagnostic)
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestHandleAnswer_ThrottledUpstream(t *testing.T) {
	client := &stubLLM{err: fmt.Errorf("exhausted retries: %w", llm.ErrRateLimited)}
	router := newAnswerRouter(client)

	w := postAnswer(router, `{"question": "what is the stamp duty on gift deeds"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many requests")
}

func TestHandleAnswer_UpstreamFailure(t *testing.T) {
	client := &stubLLM{err: fmt.Errorf("provider unreachable")}
	router := newAnswerRouter(client)

	w := postAnswer(router, `{"question": "what is the stamp duty on gift deeds"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// The raw provider error never leaks into the body.
	assert.NotContains(t, w.Body.String(), "unreachable")
}
