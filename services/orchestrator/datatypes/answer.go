// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response structures for the
// orchestrator service.
//
// This file contains the wire types for the answer pipeline: the question
// request, attached document excerpts, and the answer response.
package datatypes

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxQuestionBytes is the maximum size of a single question.
	MaxQuestionBytes = 16 * 1024 // 16KB

	// MaxExcerpts is the maximum number of attached document excerpts.
	MaxExcerpts = 10

	// ModeCitizen answers in plain language with a disclaimer appended.
	ModeCitizen = "citizen"

	// ModeLawyer answers in research-memo format without a disclaimer.
	ModeLawyer = "lawyer"
)

// answerValidate is the shared validator instance for answer datatypes.
var answerValidate = validator.New()

// =============================================================================
// Request Types
// =============================================================================

// Excerpt is a fragment of an uploaded document attached to a question.
type Excerpt struct {
	Name string `json:"name"`
	Text string `json:"text" validate:"required"`
}

// AnswerRequest is the body of POST /v1/answer.
//
// # Description
//
// Carries one user question plus the session identity and operating mode.
// Older clients send the question under "q"; Normalize folds that alias into
// Question so the rest of the pipeline only sees one field.
//
// # Fields
//
//   - Question: The user's question. Required after Normalize.
//   - Q: Legacy alias for Question. Used only when Question is empty.
//   - Mode: "citizen" (default) or "lawyer".
//   - SessionID: Conversation identity for context memory. The HTTP layer
//     fills this from the client address key when absent; Normalize mints a
//     random one only for callers outside that path.
//   - Timezone: IANA zone name used to pick a time-of-day greeting.
//   - AttachedExcerpts: Optional document fragments folded into the prompt.
type AnswerRequest struct {
	Question         string    `json:"question" validate:"max=16384"`
	Q                string    `json:"q" validate:"max=16384"`
	Mode             string    `json:"mode" validate:"omitempty,oneof=citizen lawyer"`
	SessionID        string    `json:"sessionId"`
	Timezone         string    `json:"timezone"`
	AttachedExcerpts []Excerpt `json:"attachedExcerpts" validate:"max=10,dive"`
}

// Normalize folds the legacy "q" alias into Question, trims whitespace,
// defaults the mode to citizen, and assigns a session ID when the client
// sent none.
func (r *AnswerRequest) Normalize() {
	if r.Question == "" {
		r.Question = r.Q
	}
	r.Question = strings.TrimSpace(r.Question)
	if r.Mode == "" {
		r.Mode = ModeCitizen
	}
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
}

// Validate checks the request fields after Normalize.
func (r *AnswerRequest) Validate() error {
	return answerValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// AnswerResponse is the body returned by POST /v1/answer.
//
// # Fields
//
//   - Answer: The generated or canned answer text.
//   - Cached: True when the answer was served from the response cache.
//   - SessionID: Echo of the session the answer belongs to.
//   - Diagnostic: Short machine-readable note on how the answer was produced
//     (e.g. "greeting", "clarify", "cache_hit", "generated").
//   - Timestamp: Unix milliseconds when the response was produced.
type AnswerResponse struct {
	Answer     string `json:"answer"`
	Cached     bool   `json:"cached"`
	SessionID  string `json:"sessionId"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// NewAnswerResponse stamps an answer with the current time.
func NewAnswerResponse(sessionID, answer, diagnostic string, cached bool) *AnswerResponse {
	return &AnswerResponse{
		Answer:     answer,
		Cached:     cached,
		SessionID:  sessionID,
		Diagnostic: diagnostic,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
