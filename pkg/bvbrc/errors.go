package bvbrc

import (
	"errors"
	"fmt"
)

// JSON-RPC error codes the services are known to return.
const (
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
	ErrCodeServerError    = -32000

	ErrCodeAuthFailed    = -32400
	ErrCodeNotAuthorized = -32401
	ErrCodeNotFound      = -32404
)

var (
	// ErrNotAuthenticated is returned when no token could be found.
	ErrNotAuthenticated = errors.New("not authenticated: no token configured")

	// ErrInvalidTokenFormat is returned by ParseToken.
	ErrInvalidTokenFormat = errors.New("invalid token format")
)

// HTTPError is a non-200 response that did not carry an RPC error body.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Error is a failed service call, annotated with the RPC method.
type Error struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("%s: [%d] %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, message string) *Error {
	return &Error{Op: op, Message: message}
}

func wrapError(op string, err error) *Error {
	return &Error{Op: op, Err: err, Message: err.Error()}
}

// rpcCode extracts the RPC error code carried by err, if any.
func rpcCode(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code, true
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}

// IsAuthError reports whether err is an authentication or authorization failure.
func IsAuthError(err error) bool {
	if code, ok := rpcCode(err); ok {
		return code == ErrCodeAuthFailed || code == ErrCodeNotAuthorized
	}
	return errors.Is(err, ErrNotAuthenticated)
}

// IsNotFoundError reports whether err means the object or method does not exist.
func IsNotFoundError(err error) bool {
	code, ok := rpcCode(err)
	return ok && (code == ErrCodeNotFound || code == ErrCodeMethodNotFound)
}

// IsRetryable reports whether a call failing with err may succeed if repeated.
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	code, ok := rpcCode(err)
	if !ok {
		return false
	}
	if code == ErrCodeAuthFailed || code == ErrCodeNotAuthorized {
		return false
	}
	return code == ErrCodeInternalError || (code >= -32099 && code <= ErrCodeServerError)
}
