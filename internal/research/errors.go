package research

import "errors"

// Failure categories for providers and session handling. Causes are wrapped
// with %w so callers classify with errors.Is.
var (
	// ErrEmptyQuery rejects blank queries before any session is created.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrBusy rejects a query arriving while another session is still in
	// flight on the same connection.
	ErrBusy = errors.New("a research session is already in progress")

	// ErrNoData is a provider-reported empty outcome. Never retried.
	ErrNoData = errors.New("no data available")

	// ErrProviderTimeout marks an attempt that exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrProviderUnavailable marks transport failures and bad upstream
	// responses.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// transient reports whether another attempt could succeed.
func transient(err error) bool {
	return errors.Is(err, ErrProviderTimeout) || errors.Is(err, ErrProviderUnavailable)
}
