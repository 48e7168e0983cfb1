// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports liveness for load balancers and container probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DebugBackend reports which provider backend is configured and whether its
// credentials are present. Only the first characters of a key are echoed.
func DebugBackend(c *gin.Context) {
	backend := os.Getenv("LLM_BACKEND_TYPE")
	if backend == "" {
		backend = "openai"
	}
	c.JSON(http.StatusOK, gin.H{
		"backend":   backend,
		"openaiKey": keyPresence(os.Getenv("OPENAI_API_KEY")),
		"geminiKey": keyPresence(os.Getenv("GEMINI_API_KEY")),
	})
}

func keyPresence(key string) string {
	if key == "" {
		return "missing"
	}
	if len(key) > 4 {
		key = key[:4]
	}
	return key + "..."
}
