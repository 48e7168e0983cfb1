// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/lawmitra/lawmitra/services/llm"
	"github.com/lawmitra/lawmitra/services/orchestrator/datatypes"
	"github.com/lawmitra/lawmitra/services/orchestrator/middleware"
	"github.com/lawmitra/lawmitra/services/orchestrator/observability"
	"github.com/lawmitra/lawmitra/services/orchestrator/pipeline"
)

var answerTracer = otel.Tracer("lawmitra.orchestrator.handlers")

// HandleAnswer serves POST /v1/answer: one question in, one answer out,
// with the pipeline deciding whether that answer is canned, cached or
// freshly generated.
func HandleAnswer(p *pipeline.Pipeline, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := answerTracer.Start(c.Request.Context(), "HandleAnswer")
		defer span.End()

		var req datatypes.AnswerRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the answer request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}

		// Session identity defaults to the client address key so context
		// memory accumulates across turns for clients that never send one.
		if req.SessionID == "" {
			req.SessionID = middleware.GetClientKey(c)
		}

		req.Normalize()
		if err := req.Validate(); err != nil {
			slog.Warn("Rejected invalid answer request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request fields"})
			return
		}
		if req.Question == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "no question provided"})
			return
		}

		start := time.Now()
		result, err := p.Answer(ctx, pipeline.Request{
			SessionID: req.SessionID,
			Question:  req.Question,
			Mode:      req.Mode,
			Timezone:  req.Timezone,
			Excerpts:  req.AttachedExcerpts,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if metrics != nil {
				metrics.RecordRequest(req.Mode, observability.OutcomeError, time.Since(start).Seconds())
			}

			switch {
			case errors.Is(err, pipeline.ErrEmptyQuestion):
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "no question provided"})
			case errors.Is(err, llm.ErrRateLimited):
				slog.Warn("Answer request throttled upstream", "session", req.SessionID)
				c.JSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
					Error: "The assistant is handling too many requests right now. Please try again in a few seconds.",
				})
			default:
				slog.Error("Answer pipeline failed", "session", req.SessionID, "error", err)
				c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
					Error: "Something went wrong while preparing your answer. Please try again.",
				})
			}
			return
		}

		if metrics != nil {
			metrics.RecordRequest(req.Mode, result.Outcome, time.Since(start).Seconds())
		}
		c.JSON(http.StatusOK, datatypes.NewAnswerResponse(
			req.SessionID, result.Answer, string(result.Outcome), result.Cached,
		))
	}
}
