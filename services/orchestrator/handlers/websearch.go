// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lawmitra/lawmitra/services/search"
)

// HandleWebSearch serves GET /v1/search?q=...&type=... against the legal
// source search. Backend failures already degrade to an empty list inside
// the client, so this handler only rejects an empty query.
func HandleWebSearch(client *search.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
			return
		}
		materialType := c.DefaultQuery("type", "default")

		results := client.Search(c.Request.Context(), query, materialType)
		c.JSON(http.StatusOK, gin.H{
			"query":   query,
			"results": results,
		})
	}
}
