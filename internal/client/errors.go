package client

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds reported to metrics and logs.
const (
	KindNetwork   = "network"
	KindStatus    = "status"
	KindMalformed = "malformed"
	KindCanceled  = "canceled"
	KindOther     = "other"
)

// NetworkError is a transport-level failure: DNS, refused connection, timeout,
// or a body that could not be read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach tools API at %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is returned when the API answers outside 2xx.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tools API returned %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("tools API returned %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// MalformedResponseError is returned when a 2xx body does not have the expected shape.
type MalformedResponseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response from %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ErrorKind classifies err for metrics. Nil maps to "".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var netErr *NetworkError
	var statusErr *StatusError
	var malformedErr *MalformedResponseError
	switch {
	case errors.As(err, &statusErr):
		return KindStatus
	case errors.As(err, &malformedErr):
		return KindMalformed
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindOther
	}
}

// IsRetryable reports whether trying the same request again could succeed.
// Malformed responses and 4xx statuses other than 408/429 are not retryable.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 408 || statusErr.StatusCode == 429
	}
	var malformedErr *MalformedResponseError
	if errors.As(err, &malformedErr) {
		return false
	}
	return err != nil
}
