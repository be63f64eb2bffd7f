package fetcher

import (
	"errors"
	"fmt"
)

// ErrMethodUnsupported is returned when an engine cannot issue the
// configured upstream method. Fetch does not retry it.
var ErrMethodUnsupported = errors.New("upstream method not supported by fetch engine")

// NetworkError covers non-2xx responses, timeouts and connection failures.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ContentError means the upstream answered but the body is unusable:
// too short, or a block, CAPTCHA or rate-limit page.
type ContentError struct {
	URL    string
	Reason string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("unusable upstream content: %s", e.Reason)
}

// IsNetworkError reports whether err wraps a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsContentError reports whether err wraps a ContentError.
func IsContentError(err error) bool {
	var contentErr *ContentError
	return errors.As(err, &contentErr)
}
