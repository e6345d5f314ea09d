// Package apierr defines the typed error kinds propagated across the
// collector/store I/O seam and mapped to HTTP status codes at the API
// boundary.
package apierr

import "errors"

// Sentinel error kinds. Components wrap these with context via fmt.Errorf's
// %w and callers classify with errors.Is.
var (
	// ErrTransient marks a retryable network failure (timeout, connection
	// reset) that exhausted its retry budget.
	ErrTransient = errors.New("transient network error")

	// ErrRateLimited marks an HTTP 429 response whose retries were
	// exhausted.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrHardBlocked marks an HTTP 418 (or equivalent IP-ban) response.
	// Never retried.
	ErrHardBlocked = errors.New("hard blocked by upstream")

	// ErrInsufficientData marks a request that cannot be serviced because
	// fewer bars are available than a minimum window requires.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrValidation marks a request that failed input validation at an API
	// boundary.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a store write that was silently dropped by an
	// upsert-on-conflict primitive. Constructed for observability; callers
	// must not treat it as a failure.
	ErrConflict = errors.New("conflicting row ignored")
)

// Is reports whether err wraps target anywhere in its chain. Thin wrapper
// kept for call-site symmetry with errors.As.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
