package lwm2m

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrUnavailable is returned (wrapped) by every failed read. Callers polling a
// resource treat it as "no answer this round", never as a zero value.
var ErrUnavailable = errors.New("resource unavailable")

// ErrorType represents the category of a failed request
type ErrorType int

const (
	// ErrTypeNetwork indicates a transport failure (connection refused, reset, DNS)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the per-call request timeout expired
	ErrTypeTimeout
	// ErrTypeHTTP indicates a status code outside the accepted set
	ErrTypeHTTP
	// ErrTypeNotFound indicates the server does not know the endpoint or resource
	ErrTypeNotFound
	// ErrTypeParse indicates a body that could not be decoded or lacks content.value
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// RequestError describes a failed call to the management server
type RequestError struct {
	Type       ErrorType // Category of error
	Method     string    // HTTP method of the failed call
	Path       string    // REST path of the failed call
	StatusCode int       // HTTP status code (if a response was received)
	Message    string    // Human-readable message
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Type, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *RequestError) Unwrap() error {
	return e.Err
}

// newTransportError classifies an error returned by http.Client.Do
func newTransportError(method, path string, err error) *RequestError {
	reqErr := &RequestError{
		Type:    ErrTypeNetwork,
		Method:  method,
		Path:    path,
		Message: "request failed",
		Err:     err,
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		reqErr.Type = ErrTypeTimeout
		reqErr.Message = "request timed out"
		return reqErr
	}
	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		reqErr.Type = ErrTypeTimeout
		reqErr.Message = "request timed out"
		return reqErr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		reqErr.Message = fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
		return reqErr
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		reqErr.Message = "server refused connection"
	}
	return reqErr
}

// newStatusError builds the error for a response outside the accepted set
func newStatusError(method, path string, statusCode int, body string) *RequestError {
	errType := ErrTypeHTTP
	if statusCode == 404 {
		errType = ErrTypeNotFound
	}
	msg := fmt.Sprintf("unexpected status code: %d", statusCode)
	if body != "" {
		msg += ": " + body
	}
	return &RequestError{
		Type:       errType,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    msg,
	}
}

// newParseError builds the error for an undecodable response body
func newParseError(method, path, message string, err error) *RequestError {
	return &RequestError{
		Type:    ErrTypeParse,
		Method:  method,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Type, true
	}
	return 0, false
}

// IsUnavailable reports whether err is a failed read
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsNetworkError checks if an error is a transport-level failure (including timeouts)
func IsNetworkError(err error) bool {
	t, ok := errorType(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout)
}

// IsTimeout checks if an error is a request timeout
func IsTimeout(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTimeout
}

// IsNotFound checks if the server reported an unknown endpoint or resource
func IsNotFound(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeNotFound
}

// IsHTTPError checks if an error is a rejected status code (404 included)
func IsHTTPError(err error) bool {
	t, ok := errorType(err)
	return ok && (t == ErrTypeHTTP || t == ErrTypeNotFound)
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeParse
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
