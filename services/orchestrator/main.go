// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lawmitra/lawmitra/services/llm"
	"github.com/lawmitra/lawmitra/services/orchestrator/answercache"
	"github.com/lawmitra/lawmitra/services/orchestrator/config"
	"github.com/lawmitra/lawmitra/services/orchestrator/contextmem"
	"github.com/lawmitra/lawmitra/services/orchestrator/egress"
	"github.com/lawmitra/lawmitra/services/orchestrator/observability"
	"github.com/lawmitra/lawmitra/services/orchestrator/pipeline"
	"github.com/lawmitra/lawmitra/services/orchestrator/ratelimit"
	"github.com/lawmitra/lawmitra/services/orchestrator/routes"
	"github.com/lawmitra/lawmitra/services/search"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "lawmitra-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("orchestrator-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newLLMClient selects the provider and reports the resolved backend name
// for metric labels.
func newLLMClient() (llm.LLMClient, string, error) {
	switch backend := os.Getenv("LLM_BACKEND_TYPE"); backend {
	case "openai", "":
		slog.Info("Using OpenAI LLM backend")
		client, err := llm.NewOpenAIClient()
		return client, "openai", err
	case "gemini":
		slog.Info("Using Gemini LLM backend")
		client, err := llm.NewGeminiClient()
		return client, "gemini", err
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		client, err := llm.NewOllamaClient()
		return client, "ollama", err
	default:
		slog.Warn("LLM_BACKEND_TYPE not recognized, defaulting to openai", "value", backend)
		client, err := llm.NewOpenAIClient()
		return client, "openai", err
	}
}

func main() {
	// Local development keeps secrets in a .env file; in containers the
	// environment is already populated and the file is simply absent.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("ORCHESTRATOR_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	client, backend, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	client = llm.WithRetry(client, llm.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Duration,
		MaxDelay:    cfg.Retry.MaxDelay.Duration,
		OnRetry:     func() { metrics.RecordProviderRetry(backend) },
	})

	contexts := contextmem.NewStore(contextmem.Config{
		MaxEntries:          cfg.Context.MaxEntries,
		MaxAge:              cfg.Context.MaxAge.Duration,
		SimilarityThreshold: cfg.Context.SimilarityThreshold,
	})
	cache := answercache.New(cfg.Cache.TTL.Duration)
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.Window.Duration, cfg.RateLimit.MaxRequests)
	validator := egress.NewValidator()
	searchClient := search.NewClient(search.Config{
		BingKey:   os.Getenv("BING_SEARCH_KEY"),
		GoogleKey: os.Getenv("GOOGLE_SEARCH_KEY"),
		GoogleCX:  os.Getenv("GOOGLE_SEARCH_CX"),
	})

	p := pipeline.New(cache, contexts, client, answercache.Key, pipeline.Options{
		MaxExcerptChars: cfg.Scrape.MaxChars,
		Metrics:         metrics,
	})

	router := gin.Default()
	router.Use(otelgin.Middleware("orchestrator-service"))

	routes.SetupRoutes(router, routes.Deps{
		Config:    cfg,
		Pipeline:  p,
		Contexts:  contexts,
		Limiter:   limiter,
		Validator: validator,
		Search:    searchClient,
		Metrics:   metrics,
	})

	log.Println("Starting the orchestrator server on port ", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
