package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// RetryConfig tunes the throttling retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff, doubling per attempt.
	BaseDelay time.Duration
	// MaxDelay caps both the computed backoff and any server wait hint.
	MaxDelay time.Duration
	// OnRetry, when set, is called once per throttled attempt just before
	// the backoff sleep. Wire it to a retry counter.
	OnRetry func()
}

// DefaultRetryConfig mirrors the behavior the providers tolerate well:
// three total attempts, 1s doubling backoff, 10s ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

type retryClient struct {
	inner LLMClient
	cfg   RetryConfig

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps client so throttling responses are retried with backoff.
// Only 429s are retried; every other failure surfaces immediately. When all
// attempts are throttled the returned error wraps ErrRateLimited.
func WithRetry(client LLMClient, cfg RetryConfig) LLMClient {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retryClient{
		inner: client,
		cfg:   cfg,
		sleep: sleepCtx,
	}
}

func (r *retryClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		answer, err := r.inner.Generate(ctx, prompt, params)
		if err == nil {
			return answer, nil
		}
		if !IsThrottle(err) {
			return "", err
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}
		wait := r.backoff(err, attempt)
		slog.Warn("llm: provider throttled, backing off",
			"attempt", attempt,
			"wait", wait,
		)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry()
		}
		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return "", sleepErr
		}
	}
	return "", fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

// backoff honors a numeric Retry-After hint when present, otherwise doubles
// from the base delay. Both paths are capped at MaxDelay.
func (r *retryClient) backoff(err error, attempt int) time.Duration {
	if se := asStatusError(err); se != nil && se.RetryAfter != "" {
		if secs, convErr := strconv.Atoi(se.RetryAfter); convErr == nil && secs >= 0 {
			return min(time.Duration(secs)*time.Second, r.cfg.MaxDelay)
		}
	}
	return min(r.cfg.BaseDelay<<(attempt-1), r.cfg.MaxDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
