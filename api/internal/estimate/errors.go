package estimate

import "fmt"

// ErrorKind classifies a failed estimate by its root cause.
type ErrorKind string

const (
	// KindTimeout: the transport's own deadline fired before any response.
	KindTimeout ErrorKind = "timeout"
	// KindUnreachable: no HTTP response was received at all.
	KindUnreachable ErrorKind = "unreachable"
	// KindServer: the server answered with a definite error envelope.
	KindServer ErrorKind = "server"
	// KindInvalid: the request was rejected before any external call.
	KindInvalid ErrorKind = "invalid"
)

// APIError carries an HTTP-like status alongside the cause classification.
type APIError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

// Transient reports whether the failure is a connectivity/timeout class error,
// i.e. worth retrying. Definite server answers are never retried.
func (e *APIError) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnreachable
}

func NewAPIError(status int, kind ErrorKind, format string, args ...any) *APIError {
	return &APIError{Status: status, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
