// Package apperr defines the error kinds surfaced by the token, callback and
// API layers. Callers branch on Kind instead of matching error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	NotAuthenticated
	SessionExpired
	NoRefreshToken
	MissingCredentials
	RateLimited
	NotFound
	RequestFailed
	ServerError
	NetworkError
	AuthFlowFailed
	AuthFlowTimedOut
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	NotAuthenticated:   "not_authenticated",
	SessionExpired:     "session_expired",
	NoRefreshToken:     "no_refresh_token",
	MissingCredentials: "missing_credentials",
	RateLimited:        "rate_limited",
	NotFound:           "not_found",
	RequestFailed:      "request_failed",
	ServerError:        "server_error",
	NetworkError:       "network_error",
	AuthFlowFailed:     "auth_flow_failed",
	AuthFlowTimedOut:   "auth_flow_timed_out",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DefaultRetryAfter is used when a 429 response carries no usable retry-after header.
const DefaultRetryAfter = 60

// Error is the single error type returned by the core packages.
// StatusCode is the HTTP status that produced it, 0 for failures where no
// response was received or no HTTP call was made.
type Error struct {
	Kind       Kind
	StatusCode int
	// RetryAfter is the server-requested wait in seconds (RateLimited only).
	RetryAfter int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: message}
}

// Wrap creates an Error of the given kind that keeps cause in its chain.
func Wrap(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status attached to err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// Detail returns the message of the wrapped cause, used when a user-facing
// message replaced the underlying one.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
