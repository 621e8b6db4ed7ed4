package httpds

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Class groups HTTP failures by how the pipeline should treat them.
type Class int

const (
	ClassNetwork Class = iota
	ClassTimeout
	ClassClientError
	ClassServerError
)

func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassTimeout:
		return "timeout"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// RequestError describes a failed HTTP request.
type RequestError struct {
	Class      Class
	StatusCode int // zero unless the server answered
	URL        string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("httpds: GET %s: %s (status %d)", e.URL, e.Class, e.StatusCode)
	}
	return fmt.Sprintf("httpds: GET %s: %s: %v", e.URL, e.Class, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request could succeed. Client
// errors are final except for 429.
func (e *RequestError) Retryable() bool {
	if e.Class == ClassClientError {
		return e.StatusCode == 429
	}
	return true
}

func transportError(url string, err error) *RequestError {
	class := ClassNetwork
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		class = ClassTimeout
	}
	return &RequestError{Class: class, URL: url, Err: err}
}

func statusError(url string, code int) *RequestError {
	class := ClassServerError
	if code < 500 {
		class = ClassClientError
	}
	return &RequestError{Class: class, StatusCode: code, URL: url}
}
