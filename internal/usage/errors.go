package usage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed fetch attempt.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindMalformed ErrorKind = "malformed"
	KindStatus    ErrorKind = "status"
	KindCanceled  ErrorKind = "canceled"
)

// FetchError is returned by the API client for every failed fetch.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int // HTTP status, or the API envelope code for KindStatus
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError converts any error into a FetchError. Errors that are already
// FetchErrors are returned as-is; context and net timeouts map to
// KindTimeout, context cancellation to KindCanceled, the rest to KindNetwork.
func AsFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &FetchError{Kind: KindCanceled, Message: "request canceled", Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	return &FetchError{Kind: KindNetwork, Message: err.Error(), Err: err}
}
