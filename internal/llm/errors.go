package llm

import "fmt"

// TimeoutError indicates the gateway did not answer within the request timeout
type TimeoutError struct {
	Cause error
}

func (e *TimeoutError) Error() string {
	return "OpenRouter API request timed out"
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ConnectionError indicates the gateway could not be reached
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return "Failed to connect to OpenRouter API"
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// StatusError indicates the gateway answered with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("OpenRouter API returned status %d: %s", e.StatusCode, e.Body)
}

// FormatError indicates the gateway response could not be interpreted
type FormatError struct {
	Reason string
	Cause  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid response format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
