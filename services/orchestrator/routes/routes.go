// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lawmitra/lawmitra/services/orchestrator/config"
	"github.com/lawmitra/lawmitra/services/orchestrator/contextmem"
	"github.com/lawmitra/lawmitra/services/orchestrator/egress"
	"github.com/lawmitra/lawmitra/services/orchestrator/handlers"
	"github.com/lawmitra/lawmitra/services/orchestrator/middleware"
	"github.com/lawmitra/lawmitra/services/orchestrator/observability"
	"github.com/lawmitra/lawmitra/services/orchestrator/pipeline"
	"github.com/lawmitra/lawmitra/services/orchestrator/ratelimit"
	"github.com/lawmitra/lawmitra/services/search"
)

// Deps carries everything the route table needs. All fields are required
// except Metrics, which may be nil in tests.
type Deps struct {
	Config    *config.Config
	Pipeline  *pipeline.Pipeline
	Contexts  *contextmem.Store
	Limiter   *ratelimit.SlidingWindow
	Validator *egress.Validator
	Search    *search.Client
	Metrics   *observability.PipelineMetrics
}

// SetupRoutes registers every endpoint on router. The answer and scrape
// endpoints sit behind the admission middleware; health, metrics and
// context administration do not.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		limited := v1.Group("")
		limited.Use(middleware.RateLimitMiddleware(deps.Limiter))
		{
			limited.POST("/answer", handlers.HandleAnswer(deps.Pipeline, deps.Metrics))
			limited.POST("/scrape", handlers.HandleScrape(
				deps.Validator, deps.Config.Scrape.ServiceURL, deps.Config.Scrape.MaxChars))
		}

		v1.GET("/search", handlers.HandleWebSearch(deps.Search))
		v1.GET("/debug", handlers.DebugBackend)
		v1.GET("/context/:sessionId", handlers.HandleDebugContext(deps.Contexts))
		v1.DELETE("/context/:sessionId", handlers.HandleClearContext(deps.Contexts))
	}
}
