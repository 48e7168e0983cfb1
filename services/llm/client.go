package llm

import "context"

type GenerationParams struct {
	System      string   `json:"system"`
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any text-generation backend.
// Exactly one implementation is active per process, selected at startup.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
