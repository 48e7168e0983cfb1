package llm

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a provider call that was still throttled after every
// retry attempt. Callers map it to a 429 rather than a generic failure.
var ErrRateLimited = errors.New("provider rate limited after retries")

// StatusError carries the provider's HTTP status so the retry layer can tell
// throttling apart from everything else.
type StatusError struct {
	Code int
	Body string

	// RetryAfter holds the raw Retry-After header value, if the provider
	// sent one.
	RetryAfter string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

// IsThrottle reports whether err is a provider throttling response.
func IsThrottle(err error) bool {
	se := asStatusError(err)
	return se != nil && se.Code == 429
}

func asStatusError(err error) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
