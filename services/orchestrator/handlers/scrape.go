// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/lawmitra/lawmitra/services/orchestrator/egress"
)

// scrapeHTTPClient is shared across scrape requests.
var scrapeHTTPClient = &http.Client{Timeout: 30 * time.Second}

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	URL       string `json:"url"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

// HandleScrape serves POST /v1/scrape: validates the target URL against the
// egress guard, forwards it to the scraper service, and returns the page
// text truncated to maxChars.
//
// Every URL is validated before any request leaves the process; rejected
// URLs produce 400 without touching the network.
func HandleScrape(validator *egress.Validator, scraperURL string, maxChars int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := answerTracer.Start(c.Request.Context(), "HandleScrape")
		defer span.End()

		var req scrapeRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		target, err := validator.Validate(ctx, req.URL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, egress.ErrRejected) {
				slog.Warn("Blocked scrape of disallowed URL", "url", req.URL)
				c.JSON(http.StatusBadRequest, gin.H{"error": "this URL cannot be fetched"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid URL"})
			return
		}

		if scraperURL == "" {
			slog.Error("Scrape requested but SCRAPER_SERVICE_URL is not set")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scraper service is not configured"})
			return
		}

		body, err := json.Marshal(gin.H{"url": target.String()})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		upstream, err := http.NewRequestWithContext(ctx, "POST", scraperURL+"/scrape", bytes.NewReader(body))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		upstream.Header.Set("Content-Type", "application/json")

		resp, err := scrapeHTTPClient.Do(upstream)
		if err != nil {
			span.RecordError(err)
			slog.Error("Scraper service call failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch the page"})
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			slog.Error("Scraper service returned non-OK status", "status", resp.StatusCode)
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch the page"})
			return
		}

		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not read the page"})
			return
		}

		text := payload.Text
		truncated := false
		if maxChars > 0 && len(text) > maxChars {
			text = text[:maxChars]
			truncated = true
		}
		c.JSON(http.StatusOK, scrapeResponse{URL: target.String(), Text: text, Truncated: truncated})
	}
}
