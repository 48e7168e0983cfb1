// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawmitra/lawmitra/services/orchestrator/contextmem"
)

// HandleClearContext serves DELETE /v1/context/:sessionId. Clearing an
// unknown session succeeds; the end state is the same either way.
func HandleClearContext(store *contextmem.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
			return
		}
		store.Clear(sessionID)
		c.JSON(http.StatusOK, gin.H{"status": "cleared", "sessionId": sessionID})
	}
}

// HandleDebugContext serves GET /v1/context/:sessionId, exposing the
// structured facts held for a session. Intended for development; the raw
// last question is omitted to keep the payload small.
func HandleDebugContext(store *contextmem.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
			return
		}
		sc := store.Get(sessionID)
		c.JSON(http.StatusOK, gin.H{
			"sessionId": sessionID,
			"context": gin.H{
				"intent":     sc.Intent,
				"topic":      sc.Topic,
				"city":       sc.City,
				"state":      sc.State,
				"property":   sc.Property,
				"updated_at": sc.UpdatedAt,
			},
			"sessions": store.Len(),
		})
	}
}
