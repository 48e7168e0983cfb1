// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the orchestrator service.
//
// # Admission Flow
//
// The rate limit middleware derives a client key from the X-Forwarded-For
// header (falling back to a shared anonymous key), asks the sliding-window
// limiter for admission, and rejects over-limit requests with 429 before
// any handler work happens.
//
//	Request
//	   │
//	   ▼
//	RateLimitMiddleware
//	   │
//	   ├─► key = ClientKey(X-Forwarded-For)
//	   │
//	   ├─► limiter.Allow(key) ── false ──► 429 {"error": "..."}
//	   │
//	   └─► Store key in context
//	           │
//	           ▼
//	       Handler (retrieves via GetClientKey)
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawmitra/lawmitra/services/orchestrator/datatypes"
	"github.com/lawmitra/lawmitra/services/orchestrator/observability"
	"github.com/lawmitra/lawmitra/services/orchestrator/ratelimit"
)

// clientKeyKey is the context key for the admission client key.
const clientKeyKey = "lawmitra_client_key"

// GetClientKey returns the client key the limiter admitted this request
// under. If the middleware did not run, the key is derived from the
// X-Forwarded-For header directly so both paths name the same client.
func GetClientKey(c *gin.Context) string {
	if v, exists := c.Get(clientKeyKey); exists {
		if key, ok := v.(string); ok {
			return key
		}
	}
	return ratelimit.ClientKey(c.GetHeader("X-Forwarded-For"))
}

// RateLimitMiddleware creates a Gin middleware that enforces per-client
// admission using limiter. Denied requests receive 429 and never reach the
// handler; the denial itself does not consume quota.
func RateLimitMiddleware(limiter *ratelimit.SlidingWindow) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.ClientKey(c.GetHeader("X-Forwarded-For"))

		if !limiter.Allow(key) {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRateLimited()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
				Error: "You're sending messages too quickly. Please wait a few seconds and try again.",
			})
			return
		}

		c.Set(clientKeyKey, key)
		c.Next()
	}
}
