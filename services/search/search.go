// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search queries web search backends for trusted legal sources and
// ranks the results. It is an optional enrichment: every failure path
// degrades to an empty result list so the answer pipeline never aborts
// because search was unavailable.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Result is one ranked search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// materialDomains limits each material type to reliable legal sources.
var materialDomains = map[string][]string{
	"case_law": {
		"indiankanoon.org",
		"main.sci.gov.in",
		"sci.gov.in",
		"highcourt",
	},
	"research": {
		"indiacode.nic.in",
		"egazette.nic.in",
		"lawcommissionofindia.nic.in",
		"academic.oup.com",
		"journals.sagepub.com",
	},
	"default": {
		"indiacode.nic.in",
		"egazette.nic.in",
		"sci.gov.in",
		"indiankanoon.org",
		"gov.in",
	},
}

var domainWeights = map[string]float64{
	"indiankanoon.org":            5,
	"main.sci.gov.in":             5,
	"sci.gov.in":                  5,
	"egazette.nic.in":             4,
	"indiacode.nic.in":            4,
	"lawcommissionofindia.nic.in": 3,
	"academic.oup.com":            2,
	"journals.sagepub.com":        2,
}

// Client queries Bing and Google programmable search, whichever has keys
// configured, and merges the results.
type Client struct {
	httpClient *http.Client

	bingKey   string
	googleKey string
	googleCX  string
}

// Config carries the search backend credentials. Any of them may be empty.
type Config struct {
	BingKey   string
	GoogleKey string
	GoogleCX  string
}

// NewClient creates a search client. With no keys configured the client
// still works, returning static fallback suggestions.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		bingKey:    cfg.BingKey,
		googleKey:  cfg.GoogleKey,
		googleCX:   cfg.GoogleCX,
	}
}

// Search runs the query against every configured backend and returns hits
// ranked by domain trust and keyword overlap. It never returns an error;
// backend failures are logged and skipped.
func (c *Client) Search(ctx context.Context, query, materialType string) []Result {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if c.bingKey == "" && c.googleKey == "" {
		return fallbackSuggestions()
	}

	var results []Result
	results = append(results, c.bingSearch(ctx, query, materialType)...)
	results = append(results, c.googleSearch(ctx, query)...)

	scoreResults(results, query)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func (c *Client) bingSearch(ctx context.Context, query, materialType string) []Result {
	if c.bingKey == "" {
		return nil
	}
	q := fmt.Sprintf("%s (%s)", query, domainFilter(materialType))
	reqURL := "https://api.bing.microsoft.com/v7.0/search?mkt=en-IN&count=10&responseFilter=Webpages&q=" +
		url.QueryEscape(q)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.bingKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("search: bing request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("search: bing returned non-OK status", "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Warn("search: failed to decode bing response", "error", err)
		return nil
	}

	out := make([]Result, 0, len(payload.WebPages.Value))
	for _, v := range payload.WebPages.Value {
		out = append(out, Result{Title: v.Name, URL: v.URL, Snippet: v.Snippet})
	}
	return out
}

func (c *Client) googleSearch(ctx context.Context, query string) []Result {
	if c.googleKey == "" || c.googleCX == "" {
		return nil
	}
	reqURL := fmt.Sprintf(
		"https://www.googleapis.com/customsearch/v1?key=%s&cx=%s&q=%s",
		url.QueryEscape(c.googleKey), url.QueryEscape(c.googleCX), url.QueryEscape(query),
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("search: google request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("search: google returned non-OK status", "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Warn("search: failed to decode google response", "error", err)
		return nil
	}

	out := make([]Result, 0, len(payload.Items))
	for _, v := range payload.Items {
		out = append(out, Result{Title: v.Title, URL: v.Link, Snippet: v.Snippet})
	}
	return out
}

// domainFilter builds the site: restriction for a material type.
func domainFilter(materialType string) string {
	list, ok := materialDomains[materialType]
	if !ok {
		list = materialDomains["default"]
	}
	parts := make([]string, 0, len(list))
	for _, d := range list {
		if d == "highcourt" {
			parts = append(parts, `(site:gov.in "High Court")`)
			continue
		}
		parts = append(parts, "site:"+d)
	}
	return strings.Join(parts, " OR ")
}

// scoreResults weighs each hit by its domain's trust weight plus one point
// per query keyword found in the title or snippet.
func scoreResults(results []Result, query string) {
	keywords := strings.Fields(strings.ToLower(query))
	for i := range results {
		score := 0.0
		if parsed, err := url.Parse(results[i].URL); err == nil {
			host := parsed.Hostname()
			score = domainWeights[host]
			if strings.Contains(host, "highcourt") && score < 4 {
				score = 4
			}
		}
		text := strings.ToLower(results[i].Title + " " + results[i].Snippet)
		for _, k := range keywords {
			if strings.Contains(text, k) {
				score++
			}
		}
		results[i].Score = score
	}
}

func fallbackSuggestions() []Result {
	return []Result{
		{
			Title:   "India Code — Search",
			URL:     "https://www.indiacode.nic.in/",
			Snippet: "Official repository of Acts and subordinate legislation.",
			Score:   1,
		},
		{
			Title:   "e-Gazette of India",
			URL:     "https://egazette.nic.in/",
			Snippet: "Official Gazette notifications.",
			Score:   1,
		},
		{
			Title:   "Supreme Court of India — Judgments",
			URL:     "https://main.sci.gov.in/judgments",
			Snippet: "Official judgments.",
			Score:   1,
		},
	}
}
