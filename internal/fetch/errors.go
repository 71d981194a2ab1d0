package fetch

import (
	"errors"
	"fmt"
	"time"
)

// ErrHTMLNotFound is returned by Downloader.Run when the listing page does not exist.
var ErrHTMLNotFound = errors.New("HTML file not found")

// ErrInvalidBaseURL is returned when the base URL cannot be parsed.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// HTTPStatusError is returned for a response outside the 2xx range.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
}

// IdleTimeoutError is returned when a server accepts no connection, sends
// no response, or stops sending the body for longer than the timeout.
type IdleTimeoutError struct {
	URL  string
	Idle time.Duration
}

// Error implements the error interface.
func (e *IdleTimeoutError) Error() string {
	return fmt.Sprintf("no data from %s for %s", e.URL, e.Idle)
}

// Timeout implements net.Error.
func (e *IdleTimeoutError) Timeout() bool {
	return true
}

// Temporary implements net.Error.
func (e *IdleTimeoutError) Temporary() bool {
	return true
}
